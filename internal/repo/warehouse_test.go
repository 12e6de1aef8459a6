package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

func newWarehouseClient(rt roundTripFunc, cacheProvider *stubCache) *WarehouseClient {
	opts := WarehouseOptions{
		BaseURL:         "https://warehouse.example.com",
		DailyCountsPath: "/api/v1/query/daily-counts",
		IncidentsPath:   "/api/v1/incidents",
		RollupPath:      "/api/v1/query/severity-rollup",
		TrendsPath:      "/api/v1/query/trends",
		EvidencePath:    "/api/v1/evidence",
		FeedbackPath:    "/api/v1/feedback",
		Timeout:         time.Second,
		DailyCountsTTL:  time.Minute,
		RollupTTL:       time.Minute,
	}
	var client *WarehouseClient
	if cacheProvider != nil {
		client = NewWarehouseClient(opts, cacheProvider)
	} else {
		client = NewWarehouseClient(opts, nil)
	}
	client.httpClient = newTestClient(rt)
	return client
}

func jsonResponse(t *testing.T, status int, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestFetchDailyCountsCachesResults(t *testing.T) {
	hits := 0
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/api/v1/query/daily-counts" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body struct {
			WindowDays int `json:"window_days"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.WindowDays != 60 {
			t.Fatalf("unexpected window: %d", body.WindowDays)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"daily_counts": []map[string]any{
				{"date": "2025-03-01", "incident_count": 3},
				{"date": "2025-03-04", "incident_count": 1},
			},
		}), nil
	}, newStubCache())

	ctx := context.Background()
	counts, err := client.FetchDailyCounts(ctx, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counts) != 2 || counts[0].Count != 3 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if got := counts[0].Date.String(); got != "2025-03-01" {
		t.Fatalf("unexpected date: %s", got)
	}

	cached, err := client.FetchDailyCounts(ctx, 60)
	if err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
	if len(cached) != 2 {
		t.Fatalf("unexpected cached payload: %+v", cached)
	}
}

func TestFetchIncidentMapsNotFound(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/incidents/INC-404" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(t, http.StatusNotFound, map[string]any{"error": "no such incident"}), nil
	}, nil)

	_, err := client.FetchIncident(context.Background(), "INC-404")
	if !errors.Is(err, ErrIncidentNotFound) {
		t.Fatalf("expected ErrIncidentNotFound, got %v", err)
	}
}

func TestFetchIncidentDecodesSnapshot(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"incident_id": "INC-001",
			"title":       "Phishing wave",
			"severity":    "high",
			"risk_score":  0.72,
			"tags":        []string{"phishing", "email"},
		}), nil
	}, nil)

	incident, err := client.FetchIncident(context.Background(), "INC-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incident.IncidentID != "INC-001" || incident.Severity != "high" {
		t.Fatalf("unexpected incident: %+v", incident)
	}
	if len(incident.Tags) != 2 {
		t.Fatalf("unexpected tags: %v", incident.Tags)
	}
}

func TestSearchIncidentsScoresKeywordMatches(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"incidents": []map[string]any{
				{"incident_id": "INC-1", "title": "Unrelated outage", "description": "disk full"},
				{"incident_id": "INC-2", "title": "Stolen MFA token", "description": "", "risk_score": 0.8},
				{"incident_id": "INC-3", "title": "Odd login", "description": "", "tags": []string{"mfa"}},
			},
		}), nil
	}, nil)

	results, err := client.SearchIncidents(context.Background(), "MFA", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %+v", results)
	}
	if results[0].IncidentID != "INC-2" || results[0].SimilarityScore != 0.9 {
		t.Fatalf("unexpected top hit: %+v", results[0])
	}
	if results[1].IncidentID != "INC-3" || results[1].SimilarityScore != 0.3 {
		t.Fatalf("unexpected tag hit: %+v", results[1])
	}
}

func TestSearchIncidentsEmptyQueryReturnsNothing(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusOK, map[string]any{
			"incidents": []map[string]any{{"incident_id": "INC-1", "title": "anything"}},
		}), nil
	}, nil)

	results, err := client.SearchIncidents(context.Background(), "   ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %+v", results)
	}
}

func TestFetchSeverityRollupCachesResults(t *testing.T) {
	hits := 0
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(t, http.StatusOK, map[string]any{
			"rollup": []map[string]any{
				{"severity": "critical", "count": 4, "avg_resolution_time": 6.5, "avg_risk_score": 0.9},
			},
		}), nil
	}, newStubCache())

	ctx := context.Background()
	rollup, err := client.FetchSeverityRollup(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rollup) != 1 || rollup[0].Severity != "critical" {
		t.Fatalf("unexpected rollup: %+v", rollup)
	}

	if _, err := client.FetchSeverityRollup(ctx); err != nil {
		t.Fatalf("unexpected cached error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered network call; hits=%d", hits)
	}
}

func TestInsertEvidencePostsRow(t *testing.T) {
	var captured models.Evidence
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/api/v1/evidence" {
			t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(t, http.StatusCreated, map[string]any{"status": "ok"}), nil
	}, nil)

	evidence := models.Evidence{
		EvidenceID: "ev-1",
		IncidentID: "INC-001",
		ObjectURI:  "gs://bucket/screenshot.png",
		ObjectType: "screenshot",
		Uploader:   "web-user",
	}
	if err := client.InsertEvidence(context.Background(), evidence); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.EvidenceID != "ev-1" || captured.ObjectURI != "gs://bucket/screenshot.png" {
		t.Fatalf("unexpected payload: %+v", captured)
	}
}

func TestInsertEvidenceDeduplicatesIDs(t *testing.T) {
	calls := 0
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(t, http.StatusCreated, map[string]any{"status": "ok"}), nil
	}, newStubCache())

	evidence := models.Evidence{EvidenceID: "ev-dup", IncidentID: "INC-001"}
	if err := client.InsertEvidence(context.Background(), evidence); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := client.InsertEvidence(context.Background(), evidence)
	if !errors.Is(err, ErrDuplicateEvidence) {
		t.Fatalf("expected ErrDuplicateEvidence, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream insert, got %d", calls)
	}
}

func TestInsertFeedbackSurfacesServerErrors(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusInternalServerError, map[string]any{"error": "boom"}), nil
	}, nil)

	err := client.InsertFeedback(context.Background(), models.Feedback{FeedbackID: "fb-1"})
	if err == nil {
		t.Fatalf("expected error from 500 response")
	}
}

func TestFetchTrendsDecodesRows(t *testing.T) {
	client := newWarehouseClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/query/trends" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"trends": []map[string]any{
				{"date": "2025-03-01", "incident_count": 5, "avg_risk_score": 0.6, "avg_resolution_time": 8},
			},
		}), nil
	}, nil)

	trends, err := client.FetchTrends(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trends) != 1 || trends[0].IncidentCount != 5 {
		t.Fatalf("unexpected trends: %+v", trends)
	}
}
