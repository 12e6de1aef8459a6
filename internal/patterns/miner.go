package patterns

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

// Miner mines frequency-based category hotspots from incident snapshots.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine aggregates incidents by category and returns hotspots ordered by
// prevalence. Incidents without a category land in "general".
func (m *Miner) Mine(incidents []models.Incident) []models.CategoryPattern {
	if len(incidents) == 0 {
		return []models.CategoryPattern{}
	}

	stats := make(map[string]*categoryAggregate)
	for _, inc := range incidents {
		category := strings.ToLower(strings.TrimSpace(inc.Category))
		if category == "" {
			category = "general"
		}
		agg, ok := stats[category]
		if !ok {
			agg = &categoryAggregate{tagCounts: make(map[string]int)}
			stats[category] = agg
		}
		agg.count++
		agg.riskSum += inc.RiskScore
		if inc.CreatedAt.After(agg.lastSeen) {
			agg.lastSeen = inc.CreatedAt
		}
		for _, tag := range inc.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			agg.tagCounts[tag]++
		}
	}

	total := float64(len(incidents))
	patterns := make([]models.CategoryPattern, 0, len(stats))
	for category, agg := range stats {
		patterns = append(patterns, models.CategoryPattern{
			Category:     category,
			Count:        agg.count,
			Prevalence:   float64(agg.count) / total,
			AvgRiskScore: agg.riskSum / float64(agg.count),
			TopTags:      agg.topTags(3),
			LastSeen:     agg.lastSeen,
		})
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Prevalence != patterns[j].Prevalence {
			return patterns[i].Prevalence > patterns[j].Prevalence
		}
		return patterns[i].Category < patterns[j].Category
	})

	m.logger.Debug("mined category patterns",
		slog.Int("incidents", len(incidents)),
		slog.Int("categories", len(patterns)))
	return patterns
}

type categoryAggregate struct {
	count     int
	riskSum   float64
	lastSeen  time.Time
	tagCounts map[string]int
}

func (agg *categoryAggregate) topTags(limit int) []string {
	tags := make([]string, 0, len(agg.tagCounts))
	for tag := range agg.tagCounts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if agg.tagCounts[tags[i]] != agg.tagCounts[tags[j]] {
			return agg.tagCounts[tags[i]] > agg.tagCounts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}
