package advisor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/si2astack/si2a-insights/internal/models"
)

// MaxPlaybookSteps bounds every synthesized playbook; insertions that push
// the template past it are truncated from the tail.
const MaxPlaybookSteps = 7

// baseTemplate is the fixed 7-step remediation plan the synthesizer starts
// from. Step order, owners, ETAs, priorities and tooling are contract.
var baseTemplate = []models.PlaybookStep{
	{Step: "Establish incident channel and assign roles", Owner: "IR Lead", EtaHours: 1, Priority: "P1", Tooling: "Chat/ITSM"},
	{Step: "Contain affected accounts/systems", Owner: "SecOps", EtaHours: 2, Priority: "P1", Tooling: "EDR/IAM"},
	{Step: "Collect evidence and snapshot logs", Owner: "SecOps", EtaHours: 2, Priority: "P2", Tooling: "SIEM/EDR"},
	{Step: "Root cause analysis and scope", Owner: "IR Lead", EtaHours: 4, Priority: "P2", Tooling: "SIEM"},
	{Step: "Remediate misconfigurations/rotate secrets", Owner: "IAM Admin", EtaHours: 3, Priority: "P2", Tooling: "IAM/Secrets"},
	{Step: "User comms and awareness", Owner: "IT Comms", EtaHours: 2, Priority: "P3", Tooling: "Email/LMS"},
	{Step: "Post-incident review and lessons learned", Owner: "IR Lead", EtaHours: 2, Priority: "P3", Tooling: "Docs/ITSM"},
}

// mfaStep is inserted before containment for authentication incidents.
var mfaStep = models.PlaybookStep{
	Step:     "Force password reset & MFA re-verification",
	Owner:    "IAM Admin",
	EtaHours: 1,
	Priority: "P1",
	Tooling:  "IAM",
}

// playbookPackFile is the YAML root of an optional template override pack.
type playbookPackFile struct {
	Steps []models.PlaybookStep `yaml:"steps"`
}

// PlaybookEngine synthesizes deterministic remediation playbooks. It is
// the fallback used whenever the generative provider is unavailable, and
// its output shape (5-7 rows of step/owner/eta_hours/priority/tooling) is
// the contract the generative path must also satisfy.
type PlaybookEngine struct {
	template []models.PlaybookStep
}

// NewPlaybookEngine builds an engine from the built-in template. A
// non-empty path loads a YAML pack overriding the template; a missing file
// silently keeps the built-in plan.
func NewPlaybookEngine(path string) (*PlaybookEngine, error) {
	engine := &PlaybookEngine{template: baseTemplate}
	if path == "" {
		return engine, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine, nil
		}
		return nil, fmt.Errorf("read playbook pack: %w", err)
	}

	var pack playbookPackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse playbook pack: %w", err)
	}
	if len(pack.Steps) > 0 {
		engine.template = pack.Steps
	}
	return engine, nil
}

// Synthesize emits an ordered remediation plan for the given severity and
// category, applying the severity/category-conditioned adjustments:
//
//   - critical severity tightens containment (step 2) to 1 hour at P1;
//   - a category containing "authentication" inserts the MFA reset step
//     before containment;
//   - the result is truncated to MaxPlaybookSteps from the tail.
func (e *PlaybookEngine) Synthesize(severity, category string) []models.PlaybookStep {
	steps := make([]models.PlaybookStep, len(e.template))
	copy(steps, e.template)

	if strings.EqualFold(severity, "critical") && len(steps) > 1 {
		steps[1].EtaHours = 1
		steps[1].Priority = "P1"
	}

	if strings.Contains(strings.ToLower(category), "authentication") {
		steps = append(steps[:1], append([]models.PlaybookStep{mfaStep}, steps[1:]...)...)
	}

	if len(steps) > MaxPlaybookSteps {
		steps = steps[:MaxPlaybookSteps]
	}
	return steps
}
