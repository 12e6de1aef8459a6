package advisor

import "testing"

func TestRiskBandThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.95, RiskBandVeryHigh},
		{0.9, RiskBandVeryHigh},
		{0.89, RiskBandHigh},
		{0.7, RiskBandHigh},
		{0.69, RiskBandModerate},
		{0.5, RiskBandModerate},
		{0.49, RiskBandLow},
		{0, RiskBandLow},
		{-0.1, RiskBandLow},
	}
	for _, tc := range cases {
		if got := RiskBand(tc.score); got != tc.want {
			t.Fatalf("RiskBand(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestSeverityGuidanceFallback(t *testing.T) {
	if got := SeverityGuidance("critical"); got != "immediate containment and executive comms required" {
		t.Fatalf("unexpected critical guidance: %q", got)
	}
	if got := SeverityGuidance("CRITICAL"); got != SeverityGuidance("critical") {
		t.Fatalf("guidance must be case-insensitive")
	}
	if got := SeverityGuidance("p0"); got != "Standard response" {
		t.Fatalf("unknown severity should get the generic message, got %q", got)
	}
	if got := SeverityGuidance("medium"); got != "standard response within 24–48h" {
		t.Fatalf("unexpected medium guidance: %q", got)
	}
}

func TestComplianceAssessmentTable(t *testing.T) {
	cases := map[string]string{
		"critical": "High Risk - Immediate Action Required",
		"high":     "High Risk - Escalate to Senior Team",
		"medium":   "Medium Risk - Standard Response",
		"low":      "Low Risk - Monitor and Document",
		"weird":    "Minimal Risk - Routine Handling",
		"":         "Minimal Risk - Routine Handling",
	}
	for severity, want := range cases {
		if got := ComplianceAssessment(severity); got != want {
			t.Fatalf("ComplianceAssessment(%q) = %q, want %q", severity, got, want)
		}
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	if !(SeverityRank("critical") < SeverityRank("high") &&
		SeverityRank("high") < SeverityRank("medium") &&
		SeverityRank("medium") < SeverityRank("low") &&
		SeverityRank("low") < SeverityRank("mystery")) {
		t.Fatalf("severity ranks out of order")
	}
}

func TestTitleCase(t *testing.T) {
	if got := TitleCase("in progress"); got != "In Progress" {
		t.Fatalf("unexpected title case: %q", got)
	}
	if got := TitleCase("critical"); got != "Critical" {
		t.Fatalf("unexpected title case: %q", got)
	}
}
