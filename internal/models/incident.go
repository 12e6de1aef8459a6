package models

import "time"

// Incident is the read-only snapshot of a security incident owned by the
// external warehouse. The analytics core never mutates it.
type Incident struct {
	IncidentID          string    `json:"incident_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Severity            string    `json:"severity"`
	Status              string    `json:"status"`
	Category            string    `json:"category"`
	AssignedTo          string    `json:"assigned_to,omitempty"`
	BusinessImpact      string    `json:"business_impact"`
	RootCause           string    `json:"root_cause"`
	Resolution          string    `json:"resolution"`
	CreatedAt           time.Time `json:"created_at"`
	AffectedUsers       int       `json:"affected_users"`
	AffectedSystems     []string  `json:"affected_systems,omitempty"`
	ResolutionTimeHours float64   `json:"resolution_time_hours"`
	RiskScore           float64   `json:"risk_score"`
	Tags                []string  `json:"tags"`
}

// Severity values the warehouse is expected to emit. Anything else is
// treated as "unknown" by the advisor tables.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityUnknown  = "unknown"
)

// Evidence is an object reference attached to an incident.
type Evidence struct {
	EvidenceID  string    `json:"evidence_id"`
	IncidentID  string    `json:"incident_id"`
	ObjectURI   string    `json:"object_uri"`
	ObjectType  string    `json:"object_type"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Uploader    string    `json:"uploader"`
	CreatedAt   time.Time `json:"created_at"`
}

// Feedback records a reviewer's rating of a generated artifact.
type Feedback struct {
	FeedbackID        string    `json:"feedback_id"`
	IncidentID        string    `json:"incident_id"`
	GenerationType    string    `json:"generation_type"`
	QualityRating     int       `json:"quality_rating"`
	AccuracyRating    int       `json:"accuracy_rating"`
	UsefulnessRating  int       `json:"usefulness_rating"`
	FeedbackText      string    `json:"feedback_text"`
	Reviewer          string    `json:"reviewer"`
	FeedbackTimestamp time.Time `json:"feedback_timestamp"`
}
