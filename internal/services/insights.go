package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/si2astack/si2a-insights/internal/advisor"
	"github.com/si2astack/si2a-insights/internal/analytics"
	"github.com/si2astack/si2a-insights/internal/metrics"
	"github.com/si2astack/si2a-insights/internal/models"
	"github.com/si2astack/si2a-insights/internal/patterns"
	"github.com/si2astack/si2a-insights/internal/repo"
	"github.com/si2astack/si2a-insights/internal/utils"
)

const (
	// MinForecastHorizon and MaxForecastHorizon bound the forecast window.
	MinForecastHorizon = 1
	MaxForecastHorizon = 60

	// ProviderVertex labels responses produced by the generative endpoint,
	// ProviderFallback those served by the deterministic path.
	ProviderVertex   = "vertex-ai"
	ProviderFallback = "fallback"

	incidentListLimit = 100
)

// Warehouse defines the incident warehouse operations the service needs.
type Warehouse interface {
	FetchDailyCounts(ctx context.Context, windowDays int) ([]models.DailyObservation, error)
	FetchIncident(ctx context.Context, incidentID string) (models.Incident, error)
	ListIncidents(ctx context.Context, limit int) ([]models.Incident, error)
	FetchSeverityRollup(ctx context.Context) ([]models.SeverityRollup, error)
	FetchTrends(ctx context.Context, windowDays int) ([]models.TrendPoint, error)
	SearchIncidents(ctx context.Context, query string, limit int) ([]models.SimilarIncident, error)
	ListEvidence(ctx context.Context, incidentID string) ([]models.Evidence, error)
	InsertEvidence(ctx context.Context, evidence models.Evidence) error
	InsertFeedback(ctx context.Context, feedback models.Feedback) error
}

// GenerativeProvider defines the hosted model operations. Any error from it
// is recoverable; the service degrades to the deterministic path.
type GenerativeProvider interface {
	GeneratePlaybook(ctx context.Context, incident models.Incident) ([]models.PlaybookStep, error)
	SimilarIncidents(ctx context.Context, query string, limit int) ([]models.SimilarIncident, error)
}

// Windows groups the trailing query windows, in days.
type Windows struct {
	TrendsDays   int
	AnomalyDays  int
	ForecastDays int
}

// InsightsService is the facade behind the dashboard API. It owns input
// clamping, the AI-first/fallback policy, and outcome metrics.
type InsightsService struct {
	logger     *slog.Logger
	warehouse  Warehouse
	generative GenerativeProvider
	detector   *analytics.Detector
	forecaster *analytics.Forecaster
	narrator   *advisor.Narrator
	playbooks  *advisor.PlaybookEngine
	classifier *advisor.Classifier
	miner      *patterns.Miner
	windows    Windows
	latencies  *utils.LatencyTracker
	now        func() time.Time
}

// NewInsightsService constructs the service facade.
func NewInsightsService(logger *slog.Logger, warehouse Warehouse, generative GenerativeProvider, playbooks *advisor.PlaybookEngine, windows Windows) *InsightsService {
	if logger == nil {
		logger = slog.Default()
	}
	if windows.TrendsDays <= 0 {
		windows.TrendsDays = 30
	}
	if windows.AnomalyDays <= 0 {
		windows.AnomalyDays = 60
	}
	if windows.ForecastDays <= 0 {
		windows.ForecastDays = 60
	}
	if playbooks == nil {
		playbooks, _ = advisor.NewPlaybookEngine("")
	}
	return &InsightsService{
		logger:     logger,
		warehouse:  warehouse,
		generative: generative,
		detector:   analytics.NewDetector(0),
		forecaster: analytics.NewForecaster(),
		narrator:   advisor.NewNarrator(),
		playbooks:  playbooks,
		classifier: advisor.NewClassifier(),
		miner:      patterns.NewMiner(logger),
		windows:    windows,
		latencies:  utils.NewLatencyTracker(1024),
		now:        time.Now,
	}
}

// Anomalies fills the daily series and flags outlier days. An empty
// observation window yields an empty report, not an error.
func (s *InsightsService) Anomalies(ctx context.Context) (models.AnomalyReport, error) {
	start := s.now()
	report := models.AnomalyReport{
		Series:    []models.SeriesPoint{},
		Anomalies: []models.AnomalyRecord{},
	}

	observations, err := s.warehouse.FetchDailyCounts(ctx, s.windows.AnomalyDays)
	if err != nil {
		s.observe("anomalies", start, err)
		return report, fmt.Errorf("fetch daily counts: %w", err)
	}

	series, err := analytics.FillDaily(observations)
	if err != nil {
		if errors.Is(err, analytics.ErrEmptyInput) {
			s.observe("anomalies", start, nil)
			return report, nil
		}
		s.observe("anomalies", start, err)
		return report, err
	}

	mean, std, anomalies := s.detector.Detect(series)
	report.Series = series
	report.Anomalies = anomalies
	report.Mean = mean
	report.Std = std
	s.observe("anomalies", start, nil)
	return report, nil
}

// Forecast projects daily incident counts over the clamped horizon.
func (s *InsightsService) Forecast(ctx context.Context, horizonDays int) (models.ForecastReport, error) {
	start := s.now()
	horizonDays = utils.ClampInt(horizonDays, MinForecastHorizon, MaxForecastHorizon)
	report := models.ForecastReport{
		History:  []models.SeriesPoint{},
		Forecast: []models.ForecastPoint{},
	}

	observations, err := s.warehouse.FetchDailyCounts(ctx, s.windows.ForecastDays)
	if err != nil {
		s.observe("forecast", start, err)
		return report, fmt.Errorf("fetch daily counts: %w", err)
	}

	series, err := analytics.FillDaily(observations)
	if err != nil && !errors.Is(err, analytics.ErrEmptyInput) {
		s.observe("forecast", start, err)
		return report, err
	}

	forecast, method := s.forecaster.Forecast(series, horizonDays, s.now())
	if series != nil {
		report.History = series
	}
	report.Forecast = forecast
	report.Method = method
	s.observe("forecast", start, nil)
	return report, nil
}

// Summary produces the deterministic executive summary for an incident.
func (s *InsightsService) Summary(ctx context.Context, incidentID string) (models.SummaryReport, error) {
	start := s.now()
	incident, err := s.warehouse.FetchIncident(ctx, incidentID)
	if err != nil {
		s.observe("summary", start, err)
		return models.SummaryReport{}, err
	}

	report := models.SummaryReport{
		IncidentID:  incident.IncidentID,
		Summary:     s.narrator.Summarize(incident),
		GeneratedAt: s.now().UTC(),
	}
	s.observe("summary", start, nil)
	return report, nil
}

// Playbook generates a remediation plan, preferring the generative provider
// and falling back to the deterministic synthesizer on any model failure.
// An unknown incident id is an error; any other fetch failure degrades to a
// default medium/general plan like the original dashboard.
func (s *InsightsService) Playbook(ctx context.Context, incidentID string) (models.PlaybookReport, error) {
	start := s.now()
	incident, err := s.warehouse.FetchIncident(ctx, incidentID)
	if err != nil {
		if errors.Is(err, repo.ErrIncidentNotFound) {
			s.observe("playbook", start, err)
			return models.PlaybookReport{}, err
		}
		s.logger.Warn("incident fetch failed, using defaults", slog.String("incident_id", incidentID), slog.Any("error", err))
		incident = models.Incident{
			IncidentID: incidentID,
			Severity:   models.SeverityMedium,
			Category:   "general",
		}
	}

	report := models.PlaybookReport{IncidentID: incidentID}
	if s.generative != nil {
		steps, genErr := s.generative.GeneratePlaybook(ctx, incident)
		if genErr == nil {
			report.Playbook = steps
			report.Provider = ProviderVertex
			s.observe("playbook", start, nil)
			return report, nil
		}
		s.logger.Warn("generative playbook failed, falling back", slog.String("incident_id", incidentID), slog.Any("error", genErr))
	}

	metrics.ObserveAIFallback("playbook")
	report.Playbook = s.playbooks.Synthesize(incident.Severity, incident.Category)
	report.Provider = ProviderFallback
	s.observe("playbook", start, nil)
	return report, nil
}

// Compliance classifies an incident against the policy rule table.
func (s *InsightsService) Compliance(ctx context.Context, incidentID string) (models.ComplianceReport, error) {
	start := s.now()
	incident, err := s.warehouse.FetchIncident(ctx, incidentID)
	if err != nil {
		s.observe("compliance", start, err)
		return models.ComplianceReport{}, err
	}

	policy, assessment := s.classifier.Classify(incident)
	tags := incident.Tags
	if tags == nil {
		tags = []string{}
	}
	report := models.ComplianceReport{
		IncidentID:           incident.IncidentID,
		ApplicablePolicy:     policy,
		ComplianceAssessment: assessment,
		Severity:             incident.Severity,
		Tags:                 tags,
		CheckedAt:            s.now().UTC(),
	}
	s.observe("compliance", start, nil)
	return report, nil
}

// SimilarIncidents searches for related incidents, embedding-first with a
// keyword fallback.
func (s *InsightsService) SimilarIncidents(ctx context.Context, query string, limit int) (models.SimilarIncidentsReport, error) {
	start := s.now()
	if strings.TrimSpace(query) == "" {
		s.observe("similar_incidents", start, nil)
		return models.SimilarIncidentsReport{Query: query, Results: []models.SimilarIncident{}}, nil
	}
	if limit <= 0 {
		limit = 5
	}

	report := models.SimilarIncidentsReport{Query: query, Results: []models.SimilarIncident{}}

	if s.generative != nil {
		results, genErr := s.generative.SimilarIncidents(ctx, query, limit)
		if genErr == nil {
			report.Results = results
			s.observe("similar_incidents", start, nil)
			return report, nil
		}
		s.logger.Warn("embedding search failed, falling back to keywords", slog.Any("error", genErr))
	}

	metrics.ObserveAIFallback("similar_incidents")
	results, err := s.warehouse.SearchIncidents(ctx, query, limit)
	if err != nil {
		s.observe("similar_incidents", start, err)
		return report, fmt.Errorf("keyword search: %w", err)
	}
	report.Results = results
	report.Fallback = true
	s.observe("similar_incidents", start, nil)
	return report, nil
}

// Metrics aggregates the severity rollup into dashboard headline numbers.
// Averages are unweighted means across severity groups, matching the
// original rollup arithmetic.
func (s *InsightsService) Metrics(ctx context.Context) (models.MetricsReport, error) {
	start := s.now()
	report := models.MetricsReport{SeverityBreakdown: []models.SeverityRollup{}}

	rollup, err := s.warehouse.FetchSeverityRollup(ctx)
	if err != nil {
		s.observe("metrics", start, err)
		return report, fmt.Errorf("fetch severity rollup: %w", err)
	}
	if len(rollup) == 0 {
		s.observe("metrics", start, nil)
		return report, nil
	}

	var total int
	var mttrSum, riskSum float64
	for _, row := range rollup {
		total += row.Count
		mttrSum += row.AvgResolutionTime
		riskSum += row.AvgRiskScore
	}
	report.TotalIncidents = total
	report.AvgMTTR = round2(mttrSum / float64(len(rollup)))
	report.AvgRiskScore = round2(riskSum / float64(len(rollup)))
	report.SeverityBreakdown = rollup
	s.observe("metrics", start, nil)
	return report, nil
}

// Trends returns the daily trend rollup, serving a deterministic 31-day
// mock series when the warehouse has no rows.
func (s *InsightsService) Trends(ctx context.Context) (models.TrendsReport, error) {
	start := s.now()
	trends, err := s.warehouse.FetchTrends(ctx, s.windows.TrendsDays)
	if err != nil {
		s.observe("trends", start, err)
		return models.TrendsReport{Trends: []models.TrendPoint{}}, fmt.Errorf("fetch trends: %w", err)
	}
	if len(trends) == 0 {
		trends = s.mockTrends()
	}
	s.observe("trends", start, nil)
	return models.TrendsReport{Trends: trends}, nil
}

func (s *InsightsService) mockTrends() []models.TrendPoint {
	startDate := models.DateOf(s.now()).AddDays(-30)
	points := make([]models.TrendPoint, 0, 31)
	for i := 0; i < 31; i++ {
		points = append(points, models.TrendPoint{
			Date:              startDate.AddDays(i),
			IncidentCount:     5 + (i%7)*2,
			AvgRiskScore:      0.5 + float64(i%5)*0.1,
			AvgResolutionTime: float64(4 + (i%8)*2),
		})
	}
	return points
}

// SeverityChart builds the severity distribution chart, ordered critical
// first, with mock values when the rollup is empty.
func (s *InsightsService) SeverityChart(ctx context.Context) (models.SeverityChart, error) {
	start := s.now()
	rollup, err := s.warehouse.FetchSeverityRollup(ctx)
	if err != nil {
		s.observe("severity_chart", start, err)
		return models.SeverityChart{}, fmt.Errorf("fetch severity rollup: %w", err)
	}
	if len(rollup) == 0 {
		s.observe("severity_chart", start, nil)
		return models.SeverityChart{
			Labels:             []string{"Critical", "High", "Medium", "Low"},
			Counts:             []int{5, 12, 18, 25},
			AvgResolutionTimes: []float64{8.5, 6.2, 4.1, 2.8},
		}, nil
	}

	ordered := append([]models.SeverityRollup(nil), rollup...)
	sortBySeverityRank(ordered)

	chart := models.SeverityChart{
		Labels:             make([]string, 0, len(ordered)),
		Counts:             make([]int, 0, len(ordered)),
		AvgResolutionTimes: make([]float64, 0, len(ordered)),
	}
	for _, row := range ordered {
		chart.Labels = append(chart.Labels, advisor.TitleCase(row.Severity))
		chart.Counts = append(chart.Counts, row.Count)
		chart.AvgResolutionTimes = append(chart.AvgResolutionTimes, round1(row.AvgResolutionTime))
	}
	s.observe("severity_chart", start, nil)
	return chart, nil
}

// riskBandEdges and riskBandLabels follow the original chart banding.
var (
	riskBandEdges  = []float64{0.8, 0.6, 0.4, 0.2}
	riskBandLabels = []string{
		"Critical (0.8-1.0)",
		"High (0.6-0.79)",
		"Medium (0.4-0.59)",
		"Low (0.2-0.39)",
		"Minimal (0.0-0.19)",
	}
)

// RiskChart buckets recent incidents into risk score bands, with mock
// values when there are no incidents to bucket.
func (s *InsightsService) RiskChart(ctx context.Context) (models.RiskChart, error) {
	start := s.now()
	incidents, err := s.warehouse.ListIncidents(ctx, 0)
	if err != nil {
		s.observe("risk_chart", start, err)
		return models.RiskChart{}, fmt.Errorf("list incidents: %w", err)
	}
	if len(incidents) == 0 {
		s.observe("risk_chart", start, nil)
		return models.RiskChart{
			Labels: append([]string(nil), riskBandLabels...),
			Counts: []int{8, 15, 22, 12, 3},
		}, nil
	}

	counts := make([]int, len(riskBandLabels))
	for _, inc := range incidents {
		counts[riskBandIndex(inc.RiskScore)]++
	}
	s.observe("risk_chart", start, nil)
	return models.RiskChart{
		Labels: append([]string(nil), riskBandLabels...),
		Counts: counts,
	}, nil
}

func riskBandIndex(score float64) int {
	for i, edge := range riskBandEdges {
		if score >= edge {
			return i
		}
	}
	return len(riskBandLabels) - 1
}

// Evidence lists evidence rows for an incident, serving a single mock row
// when the evidence store is unreachable.
func (s *InsightsService) Evidence(ctx context.Context, incidentID string) (models.EvidenceReport, error) {
	start := s.now()
	report := models.EvidenceReport{IncidentID: incidentID, Evidence: []models.Evidence{}}

	rows, err := s.warehouse.ListEvidence(ctx, incidentID)
	if err != nil {
		s.logger.Warn("evidence listing failed, serving mock row", slog.String("incident_id", incidentID), slog.Any("error", err))
		report.Evidence = []models.Evidence{{
			EvidenceID:  "mock-1",
			IncidentID:  incidentID,
			ObjectURI:   "gs://bucket/logs/incident.log",
			ObjectType:  "log",
			Description: "System log snapshot",
			Tags:        []string{"log", "forensics"},
			Uploader:    "system",
			CreatedAt:   s.now().UTC(),
		}}
		report.Mock = true
		s.observe("evidence", start, nil)
		return report, nil
	}
	if rows != nil {
		report.Evidence = rows
	}
	s.observe("evidence", start, nil)
	return report, nil
}

// AddEvidence stores an evidence row, filling the defaults the dashboard
// relies on. It returns the (possibly generated) evidence id.
func (s *InsightsService) AddEvidence(ctx context.Context, incidentID string, evidence models.Evidence) (string, error) {
	start := s.now()
	evidence.IncidentID = incidentID
	if strings.TrimSpace(evidence.EvidenceID) == "" {
		evidence.EvidenceID = uuid.NewString()
	}
	if strings.TrimSpace(evidence.ObjectType) == "" {
		evidence.ObjectType = "generic"
	}
	evidence.ObjectType = strings.ToLower(evidence.ObjectType)
	if strings.TrimSpace(evidence.Uploader) == "" {
		evidence.Uploader = "web-user"
	}
	if evidence.Tags == nil {
		evidence.Tags = []string{}
	}
	if evidence.CreatedAt.IsZero() {
		evidence.CreatedAt = s.now().UTC()
	}

	if err := s.warehouse.InsertEvidence(ctx, evidence); err != nil {
		if errors.Is(err, repo.ErrDuplicateEvidence) {
			s.logger.Info("duplicate evidence upload ignored", "evidence_id", evidence.EvidenceID)
			s.observe("evidence_add", start, nil)
			return evidence.EvidenceID, nil
		}
		s.observe("evidence_add", start, err)
		return "", err
	}
	s.observe("evidence_add", start, nil)
	return evidence.EvidenceID, nil
}

// SubmitFeedback stores reviewer feedback, clamping ratings to [1,5] and
// defaulting omitted fields.
func (s *InsightsService) SubmitFeedback(ctx context.Context, feedback models.Feedback) error {
	start := s.now()
	if strings.TrimSpace(feedback.FeedbackID) == "" {
		feedback.FeedbackID = fmt.Sprintf("fb-%d", s.now().UTC().Unix())
	}
	if strings.TrimSpace(feedback.GenerationType) == "" {
		feedback.GenerationType = "executive_summary"
	}
	if strings.TrimSpace(feedback.Reviewer) == "" {
		feedback.Reviewer = "anonymous"
	}
	feedback.QualityRating = clampRating(feedback.QualityRating)
	feedback.AccuracyRating = clampRating(feedback.AccuracyRating)
	feedback.UsefulnessRating = clampRating(feedback.UsefulnessRating)
	if feedback.FeedbackTimestamp.IsZero() {
		feedback.FeedbackTimestamp = s.now().UTC()
	}

	err := s.warehouse.InsertFeedback(ctx, feedback)
	s.observe("feedback", start, err)
	return err
}

// clampRating maps an omitted rating (zero) to the neutral 3 and bounds the
// rest to [1,5].
func clampRating(v int) int {
	if v == 0 {
		return 3
	}
	return utils.ClampInt(v, 1, 5)
}

// Incidents lists recent incident snapshots for the dashboard table.
func (s *InsightsService) Incidents(ctx context.Context) ([]models.Incident, error) {
	start := s.now()
	incidents, err := s.warehouse.ListIncidents(ctx, incidentListLimit)
	s.observe("incidents", start, err)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}
	return incidents, nil
}

// Patterns mines category hotspots from recent incidents.
func (s *InsightsService) Patterns(ctx context.Context) (models.PatternsReport, error) {
	start := s.now()
	incidents, err := s.warehouse.ListIncidents(ctx, 0)
	if err != nil {
		s.observe("patterns", start, err)
		return models.PatternsReport{Patterns: []models.CategoryPattern{}}, fmt.Errorf("list incidents: %w", err)
	}
	report := models.PatternsReport{Patterns: s.miner.Mine(incidents)}
	s.observe("patterns", start, nil)
	return report, nil
}

// LatencyP95 returns the current p95 request latency across operations.
func (s *InsightsService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

func (s *InsightsService) observe(endpoint string, start time.Time, err error) {
	duration := s.now().Sub(start)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	} else {
		s.latencies.Observe(duration)
		if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
			s.logger.Info("request latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
		}
	}
	metrics.ObserveRequest(endpoint, duration, outcome)
}

func sortBySeverityRank(rollup []models.SeverityRollup) {
	sort.SliceStable(rollup, func(i, j int) bool {
		return advisor.SeverityRank(rollup[i].Severity) < advisor.SeverityRank(rollup[j].Severity)
	})
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
