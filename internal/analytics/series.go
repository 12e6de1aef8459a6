package analytics

import (
	"errors"
	"sort"

	"github.com/si2astack/si2a-insights/internal/models"
)

// ErrEmptyInput signals that no observations were supplied. Callers are
// expected to short-circuit into an empty result set rather than surface a
// hard failure to the dashboard.
var ErrEmptyInput = errors.New("no observations supplied")

// FillDaily expands sparse (date, count) observations into a dense daily
// series covering every calendar day from the earliest to the latest
// observed date inclusive, sorted ascending. Days absent from the input
// carry count 0. The result length is always (max-min).days + 1.
func FillDaily(observations []models.DailyObservation) ([]models.SeriesPoint, error) {
	if len(observations) == 0 {
		return nil, ErrEmptyInput
	}

	counts := make(map[models.Date]int, len(observations))
	minDate := observations[0].Date
	maxDate := observations[0].Date
	for _, obs := range observations {
		counts[obs.Date] = obs.Count
		if obs.Date.Before(minDate.Time) {
			minDate = obs.Date
		}
		if obs.Date.After(maxDate.Time) {
			maxDate = obs.Date
		}
	}

	series := make([]models.SeriesPoint, 0, minDate.DaysUntil(maxDate)+1)
	for day := minDate; !day.After(maxDate.Time); day = day.AddDays(1) {
		series = append(series, models.SeriesPoint{Date: day, Count: counts[day]})
	}
	return series, nil
}

// SortObservations orders observations chronologically in place. FillDaily
// does not require sorted input; this is a convenience for display paths.
func SortObservations(observations []models.DailyObservation) {
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].Date.Before(observations[j].Date.Time)
	})
}
