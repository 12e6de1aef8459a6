package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/si2astack/si2a-insights/internal/cache"
	"github.com/si2astack/si2a-insights/internal/models"
)

// ErrIncidentNotFound signals that the warehouse has no row for the
// requested incident id.
var ErrIncidentNotFound = errors.New("incident not found")

// ErrDuplicateEvidence signals that an evidence id was already inserted
// within the dedupe window.
var ErrDuplicateEvidence = errors.New("duplicate evidence id")

// evidenceDedupeTTL bounds how long an evidence id blocks re-insertion.
const evidenceDedupeTTL = 10 * time.Minute

// WarehouseClient wraps the incident warehouse query API. All aggregate
// reads go through POST query endpoints, row reads through GET.
type WarehouseClient struct {
	baseURL         string
	dailyCountsPath string
	incidentsPath   string
	rollupPath      string
	trendsPath      string
	evidencePath    string
	feedbackPath    string
	httpClient      *http.Client
	cache           cache.Provider
	dailyCountsTTL  time.Duration
	rollupTTL       time.Duration
}

// WarehouseOptions configures a WarehouseClient.
type WarehouseOptions struct {
	BaseURL         string
	DailyCountsPath string
	IncidentsPath   string
	RollupPath      string
	TrendsPath      string
	EvidencePath    string
	FeedbackPath    string
	Timeout         time.Duration
	DailyCountsTTL  time.Duration
	RollupTTL       time.Duration
}

// NewWarehouseClient constructs a client targeting the configured warehouse
// instance. A nil cache provider disables read-through caching.
func NewWarehouseClient(opts WarehouseOptions, cacheProvider cache.Provider) *WarehouseClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &WarehouseClient{
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		dailyCountsPath: opts.DailyCountsPath,
		incidentsPath:   opts.IncidentsPath,
		rollupPath:      opts.RollupPath,
		trendsPath:      opts.TrendsPath,
		evidencePath:    opts.EvidencePath,
		feedbackPath:    opts.FeedbackPath,
		httpClient:      &http.Client{Timeout: opts.Timeout},
		cache:           cacheProvider,
		dailyCountsTTL:  opts.DailyCountsTTL,
		rollupTTL:       opts.RollupTTL,
	}
}

// FetchDailyCounts queries the warehouse for per-day incident counts over
// the trailing window. Gaps are expected; the analytics layer fills them.
func (c *WarehouseClient) FetchDailyCounts(ctx context.Context, windowDays int) ([]models.DailyObservation, error) {
	if c == nil {
		return nil, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("warehouse base URL not configured")
	}

	cacheKey := ""
	if c.dailyCountsTTL > 0 {
		cacheKey = fmt.Sprintf("warehouse:daily_counts:%d", windowDays)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.DailyObservation
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	payload := map[string]interface{}{
		"window_days": windowDays,
	}

	var response struct {
		DailyCounts []models.DailyObservation `json:"daily_counts"`
	}

	if err := c.postJSON(ctx, c.resolvePath(c.dailyCountsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("warehouse daily counts request failed: %w", err)
	}

	if cacheKey != "" && len(response.DailyCounts) > 0 {
		if data, err := json.Marshal(response.DailyCounts); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, c.dailyCountsTTL)
		}
	}
	return response.DailyCounts, nil
}

// FetchIncident retrieves one incident snapshot by id. A warehouse 404 maps
// to ErrIncidentNotFound.
func (c *WarehouseClient) FetchIncident(ctx context.Context, incidentID string) (models.Incident, error) {
	var incident models.Incident
	if c == nil {
		return incident, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return incident, fmt.Errorf("warehouse base URL not configured")
	}
	if strings.TrimSpace(incidentID) == "" {
		return incident, fmt.Errorf("incident id is required")
	}

	endpoint := c.resolvePath(path.Join(c.incidentsPath, url.PathEscape(incidentID)))
	if err := c.getJSON(ctx, endpoint, &incident); err != nil {
		if errors.Is(err, errNotFound) {
			return incident, ErrIncidentNotFound
		}
		return incident, fmt.Errorf("warehouse incident request failed: %w", err)
	}
	return incident, nil
}

// ListIncidents retrieves recent incident snapshots, newest first.
func (c *WarehouseClient) ListIncidents(ctx context.Context, limit int) ([]models.Incident, error) {
	if c == nil {
		return nil, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("warehouse base URL not configured")
	}

	endpoint := c.resolvePath(c.incidentsPath)
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}

	var response struct {
		Incidents []models.Incident `json:"incidents"`
	}
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("warehouse incidents request failed: %w", err)
	}
	return response.Incidents, nil
}

// FetchSeverityRollup queries the per-severity aggregation table.
func (c *WarehouseClient) FetchSeverityRollup(ctx context.Context) ([]models.SeverityRollup, error) {
	if c == nil {
		return nil, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("warehouse base URL not configured")
	}

	cacheKey := ""
	if c.rollupTTL > 0 {
		cacheKey = "warehouse:severity_rollup"
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.SeverityRollup
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var response struct {
		Rollup []models.SeverityRollup `json:"rollup"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.rollupPath), map[string]interface{}{}, &response); err != nil {
		return nil, fmt.Errorf("warehouse rollup request failed: %w", err)
	}

	if cacheKey != "" && len(response.Rollup) > 0 {
		if data, err := json.Marshal(response.Rollup); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, c.rollupTTL)
		}
	}
	return response.Rollup, nil
}

// FetchTrends queries the daily trend rollup over the trailing window.
func (c *WarehouseClient) FetchTrends(ctx context.Context, windowDays int) ([]models.TrendPoint, error) {
	if c == nil {
		return nil, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("warehouse base URL not configured")
	}

	payload := map[string]interface{}{
		"window_days": windowDays,
	}

	var response struct {
		Trends []models.TrendPoint `json:"trends"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.trendsPath), payload, &response); err != nil {
		return nil, fmt.Errorf("warehouse trends request failed: %w", err)
	}
	return response.Trends, nil
}

// SearchIncidents runs a keyword search over recent incidents. Title or
// description matches score 0.9, tag-only matches 0.3, non-matches are
// dropped. Results are ordered by score descending.
func (c *WarehouseClient) SearchIncidents(ctx context.Context, query string, limit int) ([]models.SimilarIncident, error) {
	if limit <= 0 {
		limit = 5
	}

	incidents, err := c.ListIncidents(ctx, 0)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return []models.SimilarIncident{}, nil
	}

	results := make([]models.SimilarIncident, 0, limit)
	for _, inc := range incidents {
		score := keywordScore(inc, needle)
		if score == 0 {
			continue
		}
		results = append(results, models.SimilarIncident{
			IncidentID:      inc.IncidentID,
			Title:           inc.Title,
			Description:     inc.Description,
			Severity:        inc.Severity,
			RiskScore:       inc.RiskScore,
			SimilarityScore: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ListEvidence retrieves evidence rows attached to an incident.
func (c *WarehouseClient) ListEvidence(ctx context.Context, incidentID string) ([]models.Evidence, error) {
	if c == nil {
		return nil, fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("warehouse base URL not configured")
	}

	endpoint := c.resolvePath(path.Join(c.evidencePath, url.PathEscape(incidentID)))

	var response struct {
		Evidence []models.Evidence `json:"evidence"`
	}
	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, fmt.Errorf("warehouse evidence request failed: %w", err)
	}
	return response.Evidence, nil
}

// InsertEvidence appends one evidence row. Evidence ids are deduplicated
// through the cache so a retried upload does not produce a second row.
func (c *WarehouseClient) InsertEvidence(ctx context.Context, evidence models.Evidence) error {
	if c == nil {
		return fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("warehouse base URL not configured")
	}
	if evidence.EvidenceID != "" {
		ok, err := c.cache.SetNX(ctx, "warehouse:evidence:"+evidence.EvidenceID, []byte("1"), evidenceDedupeTTL)
		if err == nil && !ok {
			return ErrDuplicateEvidence
		}
	}
	if err := c.postJSON(ctx, c.resolvePath(c.evidencePath), evidence, nil); err != nil {
		return fmt.Errorf("warehouse evidence insert failed: %w", err)
	}
	return nil
}

// InsertFeedback appends one feedback row.
func (c *WarehouseClient) InsertFeedback(ctx context.Context, feedback models.Feedback) error {
	if c == nil {
		return fmt.Errorf("warehouse client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("warehouse base URL not configured")
	}
	if err := c.postJSON(ctx, c.resolvePath(c.feedbackPath), feedback, nil); err != nil {
		return fmt.Errorf("warehouse feedback insert failed: %w", err)
	}
	return nil
}

func keywordScore(inc models.Incident, needle string) float64 {
	if strings.Contains(strings.ToLower(inc.Title), needle) ||
		strings.Contains(strings.ToLower(inc.Description), needle) {
		return 0.9
	}
	for _, tag := range inc.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return 0.3
		}
	}
	return 0
}

func (c *WarehouseClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

var errNotFound = errors.New("not found")

func (c *WarehouseClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("warehouse returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *WarehouseClient) getJSON(ctx context.Context, endpoint string, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("warehouse returned %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
