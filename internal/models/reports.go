package models

import "time"

// Report envelopes serialized to the dashboard. Field names and nesting
// are part of the external contract and must not change.

// AnomalyReport carries the dense series plus flagged days.
type AnomalyReport struct {
	Series    []SeriesPoint   `json:"series"`
	Anomalies []AnomalyRecord `json:"anomalies"`
	Mean      float64         `json:"mean"`
	Std       float64         `json:"std"`
}

// ForecastReport carries observed history and the projected horizon.
type ForecastReport struct {
	History  []SeriesPoint   `json:"history"`
	Forecast []ForecastPoint `json:"forecast"`
	Method   string          `json:"method"`
}

// SummaryReport is the executive summary for one incident.
type SummaryReport struct {
	IncidentID  string    `json:"incident_id"`
	Summary     string    `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PlaybookReport is an ordered remediation plan. Provider records whether
// the generative path or the deterministic synthesizer produced it.
type PlaybookReport struct {
	IncidentID string         `json:"incident_id"`
	Playbook   []PlaybookStep `json:"playbook"`
	Provider   string         `json:"provider"`
}

// ComplianceReport maps an incident to its governing policy.
type ComplianceReport struct {
	IncidentID           string    `json:"incident_id"`
	ApplicablePolicy     string    `json:"applicable_policy"`
	ComplianceAssessment string    `json:"compliance_assessment"`
	Severity             string    `json:"severity"`
	Tags                 []string  `json:"tags"`
	CheckedAt            time.Time `json:"checked_at"`
}

// SimilarIncident is a semantic or keyword search hit.
type SimilarIncident struct {
	IncidentID      string  `json:"incident_id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Severity        string  `json:"severity"`
	RiskScore       float64 `json:"risk_score"`
	SimilarityScore float64 `json:"similarity_score"`
}

// SimilarIncidentsReport lists search hits for a free-text query.
// Fallback is set when keyword search substituted for embeddings.
type SimilarIncidentsReport struct {
	Query    string            `json:"query"`
	Results  []SimilarIncident `json:"results"`
	Fallback bool              `json:"fallback,omitempty"`
}

// SeverityRollup is one per-severity aggregation row from the warehouse.
type SeverityRollup struct {
	Severity           string  `json:"severity"`
	Count              int     `json:"count"`
	AvgResolutionTime  float64 `json:"avg_resolution_time"`
	AvgRiskScore       float64 `json:"avg_risk_score"`
	TotalAffectedUsers int     `json:"total_affected_users"`
}

// MetricsReport is the dashboard headline block.
type MetricsReport struct {
	TotalIncidents    int              `json:"total_incidents"`
	AvgMTTR           float64          `json:"avg_mttr"`
	AvgRiskScore      float64          `json:"avg_risk_score"`
	SeverityBreakdown []SeverityRollup `json:"severity_breakdown"`
}

// TrendsReport is the daily trend series for the dashboard chart.
type TrendsReport struct {
	Trends []TrendPoint `json:"trends"`
}

// SeverityChart is the severity distribution chart payload.
type SeverityChart struct {
	Labels             []string  `json:"labels"`
	Counts             []int     `json:"counts"`
	AvgResolutionTimes []float64 `json:"avg_resolution_times"`
}

// RiskChart is the risk distribution chart payload.
type RiskChart struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// EvidenceReport lists evidence rows for an incident. Mock is set when the
// warehouse evidence table was unreachable and a placeholder was served.
type EvidenceReport struct {
	IncidentID string     `json:"incident_id"`
	Evidence   []Evidence `json:"evidence"`
	Mock       bool       `json:"mock,omitempty"`
}

// CategoryPattern is a mined category hotspot across recent incidents.
type CategoryPattern struct {
	Category     string    `json:"category"`
	Count        int       `json:"count"`
	Prevalence   float64   `json:"prevalence"`
	AvgRiskScore float64   `json:"avg_risk_score"`
	TopTags      []string  `json:"top_tags"`
	LastSeen     time.Time `json:"last_seen"`
}

// PatternsReport lists mined category hotspots.
type PatternsReport struct {
	Patterns []CategoryPattern `json:"patterns"`
}
