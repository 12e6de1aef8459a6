package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type incident struct {
	IncidentID          string    `json:"incident_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Severity            string    `json:"severity"`
	Status              string    `json:"status"`
	Category            string    `json:"category"`
	BusinessImpact      string    `json:"business_impact"`
	RootCause           string    `json:"root_cause"`
	Resolution          string    `json:"resolution"`
	CreatedAt           time.Time `json:"created_at"`
	AffectedUsers       int       `json:"affected_users"`
	ResolutionTimeHours float64   `json:"resolution_time_hours"`
	RiskScore           float64   `json:"risk_score"`
	Tags                []string  `json:"tags"`
}

type dailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"incident_count"`
}

type severityRollup struct {
	Severity           string  `json:"severity"`
	Count              int     `json:"count"`
	AvgResolutionTime  float64 `json:"avg_resolution_time"`
	AvgRiskScore       float64 `json:"avg_risk_score"`
	TotalAffectedUsers int     `json:"total_affected_users"`
}

type trendPoint struct {
	Date              string  `json:"date"`
	IncidentCount     int     `json:"incident_count"`
	AvgRiskScore      float64 `json:"avg_risk_score"`
	AvgResolutionTime float64 `json:"avg_resolution_time"`
}

type evidenceRow struct {
	EvidenceID  string    `json:"evidence_id"`
	IncidentID  string    `json:"incident_id"`
	ObjectURI   string    `json:"object_uri"`
	ObjectType  string    `json:"object_type"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Uploader    string    `json:"uploader"`
	CreatedAt   time.Time `json:"created_at"`
}

var incidents = []incident{
	{
		IncidentID:          "INC-1001",
		Title:               "Phishing campaign targeting finance",
		Description:         "Credential harvesting emails impersonating the payroll portal",
		Severity:            "high",
		Status:              "resolved",
		Category:            "phishing",
		BusinessImpact:      "Two finance accounts compromised before containment",
		RootCause:           "Lookalike domain passed the mail gateway",
		Resolution:          "Blocked domain, reset credentials, enforced MFA re-verification",
		CreatedAt:           time.Now().Add(-72 * time.Hour),
		AffectedUsers:       14,
		ResolutionTimeHours: 6.5,
		RiskScore:           0.74,
		Tags:                []string{"email", "credentials"},
	},
	{
		IncidentID:          "INC-1002",
		Title:               "Authentication service brute force",
		Severity:            "critical",
		Status:              "open",
		Category:            "authentication",
		Description:         "Sustained credential stuffing against the SSO login endpoint",
		BusinessImpact:      "Login latency degraded for all tenants",
		CreatedAt:           time.Now().Add(-6 * time.Hour),
		AffectedUsers:       230,
		ResolutionTimeHours: 0,
		RiskScore:           0.91,
		Tags:                []string{"sso", "credentials"},
	},
	{
		IncidentID:          "INC-1003",
		Title:               "Misconfigured storage bucket",
		Severity:            "medium",
		Status:              "resolved",
		Category:            "misconfiguration",
		Description:         "Internal reports bucket briefly world-readable",
		CreatedAt:           time.Now().Add(-30 * 24 * time.Hour),
		AffectedUsers:       0,
		ResolutionTimeHours: 3.2,
		RiskScore:           0.48,
		Tags:                []string{"cloud", "storage"},
	},
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/query/daily-counts", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		counts := make([]dailyCount, 0, 14)
		for i := 13; i >= 0; i-- {
			day := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
			n := 3 + (i % 5)
			if i == 2 {
				n = 19 // spike for anomaly demos
			}
			counts = append(counts, dailyCount{Date: day, Count: n})
		}
		writeJSON(w, map[string]any{"daily_counts": counts})
	})

	mux.HandleFunc("/api/v1/query/severity-rollup", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"rollup": []severityRollup{
				{Severity: "critical", Count: 3, AvgResolutionTime: 8.5, AvgRiskScore: 0.88, TotalAffectedUsers: 240},
				{Severity: "high", Count: 9, AvgResolutionTime: 6.1, AvgRiskScore: 0.71, TotalAffectedUsers: 95},
				{Severity: "medium", Count: 17, AvgResolutionTime: 4.2, AvgRiskScore: 0.52, TotalAffectedUsers: 31},
				{Severity: "low", Count: 24, AvgResolutionTime: 2.7, AvgRiskScore: 0.28, TotalAffectedUsers: 6},
			},
		})
	})

	mux.HandleFunc("/api/v1/query/trends", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		points := make([]trendPoint, 0, 30)
		for i := 29; i >= 0; i-- {
			points = append(points, trendPoint{
				Date:              time.Now().AddDate(0, 0, -i).Format("2006-01-02"),
				IncidentCount:     4 + (i % 6),
				AvgRiskScore:      0.45 + float64(i%4)*0.1,
				AvgResolutionTime: 3.5 + float64(i%5),
			})
		}
		writeJSON(w, map[string]any{"trends": points})
	})

	mux.HandleFunc("/api/v1/incidents", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, map[string]any{"incidents": incidents})
	})

	mux.HandleFunc("/api/v1/incidents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/incidents/")
		for _, inc := range incidents {
			if inc.IncidentID == id {
				writeJSON(w, inc)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"error": "incident not found"})
	})

	mux.HandleFunc("/api/v1/evidence", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var row evidenceRow
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		log.Printf("evidence stored: %s -> %s", row.IncidentID, row.EvidenceID)
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/v1/evidence/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/evidence/")
		writeJSON(w, map[string]any{
			"evidence": []evidenceRow{
				{
					EvidenceID:  "ev-sample-1",
					IncidentID:  id,
					ObjectURI:   "s3://evidence/" + id + "/gateway.log",
					ObjectType:  "log",
					Description: "Mail gateway log excerpt",
					Tags:        []string{"log"},
					Uploader:    "secops",
					CreatedAt:   time.Now().Add(-2 * time.Hour),
				},
			},
		})
	})

	mux.HandleFunc("/api/v1/feedback", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		log.Printf("feedback stored for incident %v", payload["incident_id"])
		writeJSON(w, map[string]string{"status": "ok"})
	})

	logger := log.New(log.Writer(), "warehouse-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
