package advisor

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSynthesizeBaseTemplate(t *testing.T) {
	engine, err := NewPlaybookEngine("")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	steps := engine.Synthesize("medium", "general")
	if len(steps) != 7 {
		t.Fatalf("expected the full 7-step template, got %d", len(steps))
	}
	if steps[0].Step != "Establish incident channel and assign roles" || steps[0].Owner != "IR Lead" {
		t.Fatalf("unexpected first step: %+v", steps[0])
	}
	if steps[1].EtaHours != 2 {
		t.Fatalf("containment ETA should stay at 2 for non-critical, got %d", steps[1].EtaHours)
	}
	if steps[6].Step != "Post-incident review and lessons learned" {
		t.Fatalf("unexpected last step: %+v", steps[6])
	}
}

func TestSynthesizeCriticalAuthentication(t *testing.T) {
	engine, err := NewPlaybookEngine("")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	steps := engine.Synthesize("critical", "authentication_bypass")
	if len(steps) != 7 {
		t.Fatalf("insertion must stay truncated at 7 steps, got %d", len(steps))
	}
	if steps[1].Step != "Force password reset & MFA re-verification" {
		t.Fatalf("MFA step must sit at position 2, got %+v", steps[1])
	}
	if steps[1].Owner != "IAM Admin" || steps[1].EtaHours != 1 || steps[1].Priority != "P1" {
		t.Fatalf("unexpected MFA step attributes: %+v", steps[1])
	}
	if steps[2].Step != "Contain affected accounts/systems" || steps[2].EtaHours != 1 {
		t.Fatalf("critical override must tighten containment ETA to 1: %+v", steps[2])
	}
	// The tail step of the base template is pushed out by the insertion.
	for _, step := range steps {
		if step.Step == "Post-incident review and lessons learned" {
			t.Fatalf("truncation should drop the tail step, got %v", steps)
		}
	}
}

func TestSynthesizeSeverityCaseInsensitive(t *testing.T) {
	engine, _ := NewPlaybookEngine("")
	steps := engine.Synthesize("CRITICAL", "general")
	if steps[1].EtaHours != 1 {
		t.Fatalf("severity match must be case-insensitive: %+v", steps[1])
	}
}

func TestSynthesizeDoesNotMutateTemplate(t *testing.T) {
	engine, _ := NewPlaybookEngine("")
	engine.Synthesize("critical", "authentication")

	steps := engine.Synthesize("low", "general")
	if steps[1].EtaHours != 2 || len(steps) != 7 {
		t.Fatalf("template mutated by a previous call: %+v", steps)
	}
}

func TestNewPlaybookEngineYAMLPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	if err := os.WriteFile(path, []byte(`steps:
  - step: Triage
    owner: IR Lead
    eta_hours: 1
    priority: P1
    tooling: ITSM
  - step: Contain
    owner: SecOps
    eta_hours: 3
    priority: P1
    tooling: EDR
`), 0644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	engine, err := NewPlaybookEngine(path)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	steps := engine.Synthesize("critical", "general")
	if len(steps) != 2 || steps[0].Step != "Triage" {
		t.Fatalf("pack template not applied: %+v", steps)
	}
	if steps[1].EtaHours != 1 {
		t.Fatalf("critical override applies to pack templates too: %+v", steps[1])
	}
}

func TestNewPlaybookEngineMissingPackKeepsDefault(t *testing.T) {
	engine, err := NewPlaybookEngine(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing pack must not fail: %v", err)
	}
	if len(engine.Synthesize("low", "general")) != 7 {
		t.Fatalf("expected built-in template")
	}
}
