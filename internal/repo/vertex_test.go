package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

func TestGeneratePlaybookRequiresEndpoint(t *testing.T) {
	client := NewVertexClient("", "", time.Second)
	_, err := client.GeneratePlaybook(context.Background(), models.Incident{IncidentID: "INC-001"})
	if err == nil {
		t.Fatalf("expected error for unconfigured endpoint")
	}
}

func TestGeneratePlaybookTruncatesAndFiltersSteps(t *testing.T) {
	steps := make([]map[string]any, 0, 10)
	steps = append(steps, map[string]any{"step": "   ", "owner": "noop"})
	for i := 0; i < 9; i++ {
		steps = append(steps, map[string]any{
			"step":      "Do thing",
			"owner":     "SOC Analyst",
			"eta_hours": 2,
			"priority":  "P2",
			"tooling":   "SIEM",
		})
	}

	client := NewVertexClient("https://vertex.example.com", "key-123", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/playbook:generate" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{"steps": steps}), nil
	})

	got, err := client.GeneratePlaybook(context.Background(), models.Incident{IncidentID: "INC-001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("expected 7 steps after truncation, got %d", len(got))
	}
	for _, step := range got {
		if step.Step != "Do thing" {
			t.Fatalf("blank step survived filtering: %+v", step)
		}
	}
}

func TestGeneratePlaybookRejectsEmptyResponse(t *testing.T) {
	client := NewVertexClient("https://vertex.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{"steps": []any{}}), nil
	})

	_, err := client.GeneratePlaybook(context.Background(), models.Incident{IncidentID: "INC-001"})
	if err == nil {
		t.Fatalf("expected error for empty step list")
	}
}

func TestGeneratePlaybookRejectsShortResponse(t *testing.T) {
	steps := []map[string]any{
		{"step": "Contain the host", "owner": "SecOps", "eta_hours": 1, "priority": "P1", "tooling": "EDR"},
		{"step": "Rotate credentials", "owner": "IAM Admin", "eta_hours": 2, "priority": "P2", "tooling": "IAM"},
	}
	client := NewVertexClient("https://vertex.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{"steps": steps}), nil
	})

	_, err := client.GeneratePlaybook(context.Background(), models.Incident{IncidentID: "INC-001"})
	if err == nil {
		t.Fatalf("expected error for a 2-step table")
	}
}

func TestSimilarIncidentsSendsQueryAndLimit(t *testing.T) {
	client := NewVertexClient("https://vertex.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		var body struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Query != "mfa bypass" || body.Limit != 3 {
			t.Fatalf("unexpected request body: %+v", body)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"incident_id": "INC-9", "title": "MFA fatigue attack", "similarity_score": 0.91},
			},
		}), nil
	})

	results, err := client.SimilarIncidents(context.Background(), "mfa bypass", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].IncidentID != "INC-9" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSimilarIncidentsSurfacesUpstreamError(t *testing.T) {
	client := NewVertexClient("https://vertex.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusBadGateway, map[string]any{"error": "model overloaded"}), nil
	})

	_, err := client.SimilarIncidents(context.Background(), "ransomware", 5)
	if err == nil {
		t.Fatalf("expected error from upstream failure")
	}
}
