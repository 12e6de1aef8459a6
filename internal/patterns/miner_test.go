package patterns

import (
	"testing"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

func TestMinerAggregatesCategories(t *testing.T) {
	miner := NewMiner(nil)

	now := time.Now()
	incidents := []models.Incident{
		{IncidentID: "INC-1", Category: "phishing", RiskScore: 0.6, CreatedAt: now.Add(-2 * time.Hour), Tags: []string{"email", "credential"}},
		{IncidentID: "INC-2", Category: "Phishing", RiskScore: 0.8, CreatedAt: now, Tags: []string{"email"}},
		{IncidentID: "INC-3", Category: "malware", RiskScore: 0.4, CreatedAt: now.Add(-time.Hour), Tags: []string{"endpoint"}},
		{IncidentID: "INC-4", Category: "", RiskScore: 0.2, CreatedAt: now.Add(-3 * time.Hour)},
	}

	patterns := miner.Mine(incidents)
	if len(patterns) != 3 {
		t.Fatalf("expected 3 categories, got %+v", patterns)
	}

	top := patterns[0]
	if top.Category != "phishing" || top.Count != 2 {
		t.Fatalf("unexpected top pattern: %+v", top)
	}
	if top.Prevalence != 0.5 {
		t.Fatalf("unexpected prevalence: %v", top.Prevalence)
	}
	if got := top.AvgRiskScore; got < 0.699 || got > 0.701 {
		t.Fatalf("unexpected avg risk: %v", got)
	}
	if len(top.TopTags) == 0 || top.TopTags[0] != "email" {
		t.Fatalf("unexpected top tags: %v", top.TopTags)
	}
	if !top.LastSeen.Equal(now) {
		t.Fatalf("unexpected last seen: %v", top.LastSeen)
	}
}

func TestMinerDefaultsMissingCategory(t *testing.T) {
	miner := NewMiner(nil)
	patterns := miner.Mine([]models.Incident{{IncidentID: "INC-1"}})
	if len(patterns) != 1 || patterns[0].Category != "general" {
		t.Fatalf("unexpected patterns: %+v", patterns)
	}
}

func TestMinerEmptyInput(t *testing.T) {
	miner := NewMiner(nil)
	if got := miner.Mine(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestMinerLimitsTopTags(t *testing.T) {
	miner := NewMiner(nil)
	incidents := []models.Incident{
		{Category: "access", Tags: []string{"a", "b", "c", "d"}},
		{Category: "access", Tags: []string{"a", "b", "c"}},
		{Category: "access", Tags: []string{"a", "b"}},
		{Category: "access", Tags: []string{"a"}},
	}
	patterns := miner.Mine(incidents)
	if len(patterns) != 1 {
		t.Fatalf("expected one pattern, got %+v", patterns)
	}
	tags := patterns[0].TopTags
	if len(tags) != 3 || tags[0] != "a" || tags[1] != "b" || tags[2] != "c" {
		t.Fatalf("unexpected top tags: %v", tags)
	}
}
