package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

// Generated playbooks must land in the same 5-7 step range the
// deterministic synthesizer emits. Short tables are rejected so callers
// fall back; long ones are truncated.
const (
	minGeneratedSteps = 5
	maxGeneratedSteps = 7
)

// VertexClient wraps the hosted generative API used for playbook drafting
// and embedding-based incident search. Every method returns an error when
// the endpoint is not configured so callers can fall back to the
// deterministic path.
type VertexClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewVertexClient constructs a client for the generative endpoint. An empty
// endpoint yields a client whose calls always fail, which callers treat as
// a signal to use the fallback synthesizer.
func NewVertexClient(endpoint, apiKey string, timeout time.Duration) *VertexClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &VertexClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GeneratePlaybook asks the generative model for a remediation plan. The
// response must contain 5-7 well-formed steps; anything shorter is an
// error and the caller falls back.
func (v *VertexClient) GeneratePlaybook(ctx context.Context, incident models.Incident) ([]models.PlaybookStep, error) {
	if v == nil || v.endpoint == "" {
		return nil, fmt.Errorf("vertex endpoint not configured")
	}

	payload := map[string]interface{}{
		"incident_id": incident.IncidentID,
		"title":       incident.Title,
		"description": incident.Description,
		"severity":    incident.Severity,
		"category":    incident.Category,
		"tags":        incident.Tags,
	}

	var response struct {
		Steps []models.PlaybookStep `json:"steps"`
	}
	if err := v.postJSON(ctx, v.endpoint+"/v1/playbook:generate", payload, &response); err != nil {
		return nil, fmt.Errorf("vertex playbook request failed: %w", err)
	}

	steps := make([]models.PlaybookStep, 0, len(response.Steps))
	for _, step := range response.Steps {
		if strings.TrimSpace(step.Step) == "" {
			continue
		}
		steps = append(steps, step)
	}
	if len(steps) < minGeneratedSteps {
		return nil, fmt.Errorf("vertex playbook response contained %d usable steps, need at least %d", len(steps), minGeneratedSteps)
	}
	if len(steps) > maxGeneratedSteps {
		steps = steps[:maxGeneratedSteps]
	}
	return steps, nil
}

// SimilarIncidents runs an embedding similarity search for the query text.
func (v *VertexClient) SimilarIncidents(ctx context.Context, query string, limit int) ([]models.SimilarIncident, error) {
	if v == nil || v.endpoint == "" {
		return nil, fmt.Errorf("vertex endpoint not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 5
	}

	payload := map[string]interface{}{
		"query": query,
		"limit": limit,
	}

	var response struct {
		Results []models.SimilarIncident `json:"results"`
	}
	if err := v.postJSON(ctx, v.endpoint+"/v1/incidents:search", payload, &response); err != nil {
		return nil, fmt.Errorf("vertex search request failed: %w", err)
	}
	if len(response.Results) > limit {
		response.Results = response.Results[:limit]
	}
	return response.Results, nil
}

func (v *VertexClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vertex returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
