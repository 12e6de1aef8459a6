package advisor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

// Defaults substituted for absent incident fields. Two of them double as
// sentinels: a root cause equal to DefaultRootCause suppresses the "Likely
// Root Cause" section, and a resolution equal to DefaultResolution
// suppresses "Actions Taken".
const (
	DefaultTitle          = "Untitled Incident"
	DefaultCategory       = "general"
	DefaultBusinessImpact = "Not specified"
	DefaultRootCause      = "Undetermined"
	DefaultResolution     = "In progress"
)

// actionRule appends its actions when the predicate matches. Rules are
// evaluated in order and only ever append; the closing documentation action
// is appended unconditionally after all rules ran.
type actionRule struct {
	matches func(incidentView) bool
	actions []string
}

// incidentView is the defaulted, normalised snapshot the rules see.
type incidentView struct {
	title          string
	description    string
	severity       string
	status         string
	category       string
	businessImpact string
	rootCause      string
	resolution     string
	createdAt      time.Time
	affectedUsers  int
	etaHours       float64
	riskScore      float64
	tags           []string
}

var actionRules = []actionRule{
	{
		matches: func(v incidentView) bool {
			return v.severity == "critical" || v.severity == "high"
		},
		actions: []string{
			"Initiate incident command and page senior on-call",
			"Contain blast radius and revoke suspicious access",
		},
	},
	{
		matches: func(v incidentView) bool {
			if strings.Contains(v.category, "authentication") {
				return true
			}
			if strings.Contains(strings.ToLower(v.description), "mfa") {
				return true
			}
			for _, tag := range v.tags {
				if strings.ToLower(tag) == "mfa" {
					return true
				}
			}
			return false
		},
		actions: []string{"Force password reset; enforce MFA re-verification for affected users"},
	},
	{
		matches: func(v incidentView) bool {
			for _, kw := range []string{"data_leak", "credential", "insider", "third_party"} {
				if strings.Contains(v.category, kw) {
					return true
				}
			}
			return false
		},
		actions: []string{"Start data exposure assessment and legal/compliance review"},
	},
}

const closingAction = "Document findings and schedule post-incident review within 72 hours"

// Narrator renders deterministic executive summaries for incidents.
type Narrator struct{}

// NewNarrator creates a Narrator.
func NewNarrator() *Narrator {
	return &Narrator{}
}

// SuggestedActions evaluates the ordered action rules for an incident.
func (n *Narrator) SuggestedActions(incident models.Incident) []string {
	view := viewOf(incident)
	actions := make([]string, 0, 4)
	for _, rule := range actionRules {
		if rule.matches(view) {
			actions = append(actions, rule.actions...)
		}
	}
	return append(actions, closingAction)
}

// Summarize produces the multi-section executive summary text for an
// incident snapshot. Output is deterministic given the same snapshot.
func (n *Narrator) Summarize(incident models.Incident) string {
	view := viewOf(incident)

	created := "N/A"
	if !view.createdAt.IsZero() {
		created = view.createdAt.UTC().Format("2006-01-02 15:04:05")
	}

	lines := []string{
		fmt.Sprintf("EXECUTIVE SUMMARY - %s", incident.IncidentID),
		"",
		fmt.Sprintf("Title: %s", view.title),
		fmt.Sprintf("Severity: %s (%s)", TitleCase(view.severity), SeverityGuidance(view.severity)),
		fmt.Sprintf("Status: %s", TitleCase(view.status)),
		fmt.Sprintf("Category: %s", view.category),
		fmt.Sprintf("Created: %s", created),
		fmt.Sprintf("Affected Users: %d", view.affectedUsers),
		fmt.Sprintf("Estimated Resolution Time: %s hours", formatHours(view.etaHours)),
		fmt.Sprintf("Risk: %.2f (%s)", view.riskScore, RiskBand(view.riskScore)),
		fmt.Sprintf("Business Impact: %s", view.businessImpact),
	}

	if view.description != "" {
		lines = append(lines, "", "Context:", "- "+view.description)
	}
	if view.rootCause != DefaultRootCause {
		lines = append(lines, "", "Likely Root Cause:", "- "+view.rootCause)
	}
	if view.resolution != DefaultResolution {
		lines = append(lines, "", "Actions Taken:", "- "+view.resolution)
	}

	lines = append(lines, "", "Recommended Next Actions:")
	for _, action := range n.SuggestedActions(incident) {
		lines = append(lines, "- "+action)
	}

	return strings.Join(lines, "\n")
}

func viewOf(incident models.Incident) incidentView {
	return incidentView{
		title:          orDefault(incident.Title, DefaultTitle),
		description:    incident.Description,
		severity:       strings.ToLower(orDefault(incident.Severity, models.SeverityUnknown)),
		status:         orDefault(incident.Status, models.SeverityUnknown),
		category:       orDefault(incident.Category, DefaultCategory),
		businessImpact: orDefault(incident.BusinessImpact, DefaultBusinessImpact),
		rootCause:      orDefault(incident.RootCause, DefaultRootCause),
		resolution:     orDefault(incident.Resolution, DefaultResolution),
		createdAt:      incident.CreatedAt,
		affectedUsers:  maxInt(incident.AffectedUsers, 0),
		etaHours:       maxFloat(incident.ResolutionTimeHours, 0),
		riskScore:      incident.RiskScore,
		tags:           incident.Tags,
	}
}

// formatHours renders an hour count with at least one decimal, so whole
// numbers read "4.0 hours" rather than "4 hours".
func formatHours(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func maxInt(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

func maxFloat(v, floor float64) float64 {
	if v < floor {
		return floor
	}
	return v
}
