package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

func day(d int) models.Date {
	return models.NewDate(2025, time.March, d)
}

func TestFillDailyDenseAndSorted(t *testing.T) {
	obs := []models.DailyObservation{
		{Date: day(10), Count: 4},
		{Date: day(3), Count: 7},
		{Date: day(6), Count: 1},
	}

	series, err := FillDaily(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 8 {
		t.Fatalf("expected 8 days (Mar 3..10), got %d", len(series))
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Date.Equal(series[i-1].Date.AddDays(1).Time) {
			t.Fatalf("series not contiguous at index %d", i)
		}
	}

	byDate := make(map[string]int, len(series))
	for _, p := range series {
		byDate[p.Date.String()] = p.Count
	}
	if byDate["2025-03-03"] != 7 || byDate["2025-03-06"] != 1 || byDate["2025-03-10"] != 4 {
		t.Fatalf("observed counts not preserved: %v", byDate)
	}
	if byDate["2025-03-04"] != 0 || byDate["2025-03-09"] != 0 {
		t.Fatalf("gap days should be zero-filled: %v", byDate)
	}
}

func TestFillDailySinglePoint(t *testing.T) {
	series, err := FillDaily([]models.DailyObservation{{Date: day(1), Count: 3}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 1 || series[0].Count != 3 {
		t.Fatalf("expected single-point series, got %+v", series)
	}
}

func TestFillDailyEmpty(t *testing.T) {
	if _, err := FillDaily(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestFillDailyIdempotent(t *testing.T) {
	obs := []models.DailyObservation{
		{Date: day(5), Count: 2},
		{Date: day(1), Count: 9},
	}
	first, err := FillDaily(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := FillDaily(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("length differs between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("entry %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
