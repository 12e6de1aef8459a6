package models

// DailyObservation is one (date, count) pair from the warehouse
// aggregation query. The observation set may have gaps and is unsorted.
type DailyObservation struct {
	Date  Date `json:"date"`
	Count int  `json:"incident_count"`
}

// SeriesPoint is one entry of a dense daily series: every calendar day in
// the observed range appears exactly once, missing days carry count 0.
type SeriesPoint struct {
	Date  Date `json:"date"`
	Count int  `json:"incident_count"`
}

// AnomalyRecord marks a day whose z-score cleared the detection threshold.
type AnomalyRecord struct {
	Date   Date    `json:"date"`
	Count  int     `json:"incident_count"`
	ZScore float64 `json:"zscore"`
}

// ForecastPoint is a projected daily count, strictly in the future and
// never negative.
type ForecastPoint struct {
	Date      Date    `json:"date"`
	Predicted float64 `json:"predicted_incidents"`
}

// TrendPoint is one row of the daily trend rollup.
type TrendPoint struct {
	Date              Date    `json:"date"`
	IncidentCount     int     `json:"incident_count"`
	AvgRiskScore      float64 `json:"avg_risk_score"`
	AvgResolutionTime float64 `json:"avg_resolution_time"`
}

// PlaybookStep is one remediation action in an ordered playbook.
type PlaybookStep struct {
	Step     string `json:"step" yaml:"step"`
	Owner    string `json:"owner" yaml:"owner"`
	EtaHours int    `json:"eta_hours" yaml:"eta_hours"`
	Priority string `json:"priority" yaml:"priority"`
	Tooling  string `json:"tooling" yaml:"tooling"`
}
