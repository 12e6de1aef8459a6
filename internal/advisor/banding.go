// Package advisor derives deterministic decision-support artifacts from a
// single incident snapshot: executive summaries, remediation playbooks and
// compliance classifications. Everything here is the rule-driven fallback
// contract that the generative provider must also satisfy, so evaluation
// order and exact wording are load-bearing.
package advisor

import "strings"

// Risk band labels derived from a continuous risk score.
const (
	RiskBandVeryHigh = "Very High"
	RiskBandHigh     = "High"
	RiskBandModerate = "Moderate"
	RiskBandLow      = "Low"
)

// riskBands is evaluated top-down; the first threshold at or below the
// score wins.
var riskBands = []struct {
	Threshold float64
	Label     string
}{
	{0.9, RiskBandVeryHigh},
	{0.7, RiskBandHigh},
	{0.5, RiskBandModerate},
}

// RiskBand maps a risk score to its categorical band.
func RiskBand(score float64) string {
	for _, band := range riskBands {
		if score >= band.Threshold {
			return band.Label
		}
	}
	return RiskBandLow
}

// severityGuidance is the fixed per-severity response guidance quoted in
// executive summaries.
var severityGuidance = map[string]string{
	"critical": "immediate containment and executive comms required",
	"high":     "rapid response, escalate to senior on-call",
	"medium":   "standard response within 24–48h",
	"low":      "monitor and document",
}

// defaultSeverityGuidance covers unknown severities.
const defaultSeverityGuidance = "Standard response"

// SeverityGuidance returns the response guidance for a (lower-cased)
// severity, falling back to a generic message for unknown values.
func SeverityGuidance(severity string) string {
	if text, ok := severityGuidance[strings.ToLower(severity)]; ok {
		return text
	}
	return defaultSeverityGuidance
}

// complianceAssessments maps severity to the risk-based assessment string
// used by compliance checks.
var complianceAssessments = map[string]string{
	"critical": "High Risk - Immediate Action Required",
	"high":     "High Risk - Escalate to Senior Team",
	"medium":   "Medium Risk - Standard Response",
	"low":      "Low Risk - Monitor and Document",
}

const defaultComplianceAssessment = "Minimal Risk - Routine Handling"

// ComplianceAssessment returns the severity-driven assessment string.
func ComplianceAssessment(severity string) string {
	if text, ok := complianceAssessments[strings.ToLower(severity)]; ok {
		return text
	}
	return defaultComplianceAssessment
}

// SeverityRank orders severities for display, most urgent first. Unknown
// severities sort last.
func SeverityRank(severity string) int {
	switch strings.ToLower(severity) {
	case "critical":
		return 1
	case "high":
		return 2
	case "medium":
		return 3
	case "low":
		return 4
	default:
		return 5
	}
}

// TitleCase upper-cases the first letter of each space-separated word,
// matching how severities and statuses are displayed on the dashboard.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
