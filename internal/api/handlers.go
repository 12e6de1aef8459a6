package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/si2astack/si2a-insights/internal/models"
	"github.com/si2astack/si2a-insights/internal/repo"
)

const defaultForecastDays = 14

// Insights captures the service operations the HTTP layer exposes.
type Insights interface {
	Anomalies(ctx context.Context) (models.AnomalyReport, error)
	Forecast(ctx context.Context, horizonDays int) (models.ForecastReport, error)
	Summary(ctx context.Context, incidentID string) (models.SummaryReport, error)
	Playbook(ctx context.Context, incidentID string) (models.PlaybookReport, error)
	Compliance(ctx context.Context, incidentID string) (models.ComplianceReport, error)
	SimilarIncidents(ctx context.Context, query string, limit int) (models.SimilarIncidentsReport, error)
	Metrics(ctx context.Context) (models.MetricsReport, error)
	Trends(ctx context.Context) (models.TrendsReport, error)
	SeverityChart(ctx context.Context) (models.SeverityChart, error)
	RiskChart(ctx context.Context) (models.RiskChart, error)
	Evidence(ctx context.Context, incidentID string) (models.EvidenceReport, error)
	AddEvidence(ctx context.Context, incidentID string, evidence models.Evidence) (string, error)
	SubmitFeedback(ctx context.Context, feedback models.Feedback) error
	Incidents(ctx context.Context) ([]models.Incident, error)
	Patterns(ctx context.Context) (models.PatternsReport, error)
}

// Handlers serves the dashboard JSON API.
type Handlers struct {
	insights Insights
	logger   *slog.Logger
}

// NewRouter wires all dashboard routes, RBAC, and CORS into one handler.
func NewRouter(insights Insights, logger *slog.Logger, allowedOrigins []string) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{insights: insights, logger: logger}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/rbac/me", h.whoami).Methods(http.MethodGet)
	api.HandleFunc("/incidents", h.incidents).Methods(http.MethodGet)
	api.HandleFunc("/metrics", h.metrics).Methods(http.MethodGet)
	api.HandleFunc("/ai-summary/{incident_id}", h.summary).Methods(http.MethodGet)
	api.HandleFunc("/similar-incidents", h.similarIncidents).Methods(http.MethodGet)
	api.Handle("/playbook/{incident_id}", h.requireRole(writerRoles, h.playbook)).Methods(http.MethodPost)
	api.HandleFunc("/trends", h.trends).Methods(http.MethodGet)
	api.HandleFunc("/anomalies/incidents", h.anomalies).Methods(http.MethodGet)
	api.HandleFunc("/forecast/incidents", h.forecast).Methods(http.MethodGet)
	api.HandleFunc("/evidence/{incident_id}", h.listEvidence).Methods(http.MethodGet)
	api.Handle("/evidence/{incident_id}", h.requireRole(writerRoles, h.addEvidence)).Methods(http.MethodPost)
	api.Handle("/feedback", h.requireRole(writerRoles, h.feedback)).Methods(http.MethodPost)
	api.HandleFunc("/compliance-check/{incident_id}", h.compliance).Methods(http.MethodGet)
	api.HandleFunc("/charts/severity-distribution", h.severityChart).Methods(http.MethodGet)
	api.HandleFunc("/charts/risk-distribution", h.riskChart).Methods(http.MethodGet)
	api.HandleFunc("/patterns", h.patterns).Methods(http.MethodGet)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-User-Role"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (h *Handlers) requireRole(allowed map[string]struct{}, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := UserRole(r)
		if _, ok := allowed[role]; !ok {
			h.writeJSON(w, http.StatusForbidden, map[string]any{
				"error":   "forbidden",
				"message": "Insufficient role",
				"role":    role,
			})
			return
		}
		next(w, r)
	})
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "si2a-insights",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) whoami(w http.ResponseWriter, r *http.Request) {
	role := UserRole(r)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"role":         role,
		"capabilities": Capabilities(role),
	})
}

func (h *Handlers) incidents(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.insights.Incidents(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, incidents)
}

func (h *Handlers) metrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Metrics(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Summary(r.Context(), mux.Vars(r)["incident_id"])
	if err != nil {
		h.writeIncidentError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) similarIncidents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Query text is required"})
		return
	}
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	report, err := h.insights.SimilarIncidents(r.Context(), query, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) playbook(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Playbook(r.Context(), mux.Vars(r)["incident_id"])
	if err != nil {
		h.writeIncidentError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) trends(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Trends(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) anomalies(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Anomalies(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) forecast(w http.ResponseWriter, r *http.Request) {
	days := defaultForecastDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "days must be an integer"})
			return
		}
		days = n
	}
	report, err := h.insights.Forecast(r.Context(), days)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) listEvidence(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Evidence(r.Context(), mux.Vars(r)["incident_id"])
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) addEvidence(w http.ResponseWriter, r *http.Request) {
	var evidence models.Evidence
	if err := json.NewDecoder(r.Body).Decode(&evidence); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	id, err := h.insights.AddEvidence(r.Context(), mux.Vars(r)["incident_id"], evidence)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "evidence_id": id})
}

func (h *Handlers) feedback(w http.ResponseWriter, r *http.Request) {
	var feedback models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if err := h.insights.SubmitFeedback(r.Context(), feedback); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handlers) compliance(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Compliance(r.Context(), mux.Vars(r)["incident_id"])
	if err != nil {
		h.writeIncidentError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) severityChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.insights.SeverityChart(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) riskChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.insights.RiskChart(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

func (h *Handlers) patterns(w http.ResponseWriter, r *http.Request) {
	report, err := h.insights.Patterns(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) writeIncidentError(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrIncidentNotFound) {
		h.writeJSON(w, http.StatusNotFound, map[string]any{"error": "incident not found"})
		return
	}
	h.writeError(w, http.StatusInternalServerError, err)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Error("request failed", slog.Any("error", err))
	h.writeJSON(w, status, map[string]any{"error": err.Error()})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode response failed", slog.Any("error", err))
	}
}
