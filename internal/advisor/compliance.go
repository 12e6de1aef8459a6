package advisor

import (
	"strings"

	"github.com/si2astack/si2a-insights/internal/models"
)

// DefaultPolicy applies when no keyword rule matches.
const DefaultPolicy = "General Security Policy"

// policyRule maps an exact tag or a description keyword to a policy label.
// Rules are ordered; the first match wins.
type policyRule struct {
	Policy  string
	Tag     string
	Keyword string
}

var policyRules = []policyRule{
	{Policy: "MFA Policy", Tag: "mfa", Keyword: "mfa"},
	{Policy: "SaaS Usage Policy", Tag: "saas", Keyword: "saas"},
	{Policy: "Access Control Policy", Tag: "access", Keyword: "access"},
}

// Classifier maps incidents to their governing policy and a risk-based
// compliance assessment. Pure function of the incident snapshot.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns (applicable_policy, compliance_assessment) for an
// incident. Policy matching walks the ordered rule table: a rule matches
// when the incident carries the rule's tag verbatim or its description
// contains the keyword case-insensitively. Assessment depends on severity
// alone.
func (c *Classifier) Classify(incident models.Incident) (policy, assessment string) {
	description := strings.ToLower(incident.Description)

	policy = DefaultPolicy
	for _, rule := range policyRules {
		if hasTag(incident.Tags, rule.Tag) || strings.Contains(description, rule.Keyword) {
			policy = rule.Policy
			break
		}
	}

	return policy, ComplianceAssessment(incident.Severity)
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
