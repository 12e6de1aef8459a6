package analytics

import (
	"testing"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

func TestForecastConstantSeriesIsFlat(t *testing.T) {
	forecaster := NewForecaster()
	series := seriesFromCounts(5, 5, 5)

	forecast, method := forecaster.Forecast(series, 14, time.Now())
	if method != MethodLinearTrend {
		t.Fatalf("three constant points still fit a line, got method %q", method)
	}
	if len(forecast) != 14 {
		t.Fatalf("expected 14 points, got %d", len(forecast))
	}
	last := series[len(series)-1].Date
	for i, point := range forecast {
		if point.Predicted != 5.0 {
			t.Fatalf("slope 0 intercept 5 should predict 5.0, got %f", point.Predicted)
		}
		if !point.Date.Equal(last.AddDays(i + 1).Time) {
			t.Fatalf("forecast dates must be contiguous from the day after the last observation")
		}
	}
}

func TestForecastEmptySeriesNaive(t *testing.T) {
	forecaster := NewForecaster()
	now := time.Date(2025, time.March, 1, 15, 30, 0, 0, time.UTC)

	forecast, method := forecaster.Forecast(nil, 3, now)
	if method != MethodNaive {
		t.Fatalf("expected naive method, got %q", method)
	}
	if len(forecast) != 3 {
		t.Fatalf("expected 3 points, got %d", len(forecast))
	}
	if forecast[0].Date.String() != "2025-03-02" {
		t.Fatalf("naive forecast must start the day after now, got %s", forecast[0].Date)
	}
	for _, point := range forecast {
		if point.Predicted != 5.0 {
			t.Fatalf("naive rate is fixed at 5/day, got %f", point.Predicted)
		}
	}
}

func TestForecastSinglePointNaiveLast(t *testing.T) {
	forecaster := NewForecaster()
	series := []models.SeriesPoint{{Date: day(10), Count: 8}}

	forecast, method := forecaster.Forecast(series, 5, time.Now())
	if method != MethodNaiveLast {
		t.Fatalf("single point has a degenerate fit, got method %q", method)
	}
	for _, point := range forecast {
		if point.Predicted != 8.0 {
			t.Fatalf("naive_last should carry the mean forward, got %f", point.Predicted)
		}
	}
}

func TestForecastNeverNegative(t *testing.T) {
	forecaster := NewForecaster()
	// Steeply declining series: the fitted line crosses zero inside the horizon.
	series := seriesFromCounts(30, 20, 10)

	forecast, method := forecaster.Forecast(series, 10, time.Now())
	if method != MethodLinearTrend {
		t.Fatalf("unexpected method %q", method)
	}
	for _, point := range forecast {
		if point.Predicted < 0 {
			t.Fatalf("prediction went negative: %f", point.Predicted)
		}
	}
	if forecast[9].Predicted != 0 {
		t.Fatalf("deep horizon of a falling line should clamp to 0, got %f", forecast[9].Predicted)
	}
}

func TestForecastRoundsToTwoDecimals(t *testing.T) {
	forecaster := NewForecaster()
	series := seriesFromCounts(1, 2, 4)

	forecast, _ := forecaster.Forecast(series, 1, time.Now())
	got := forecast[0].Predicted
	if got != round2(got) {
		t.Fatalf("prediction not rounded: %v", got)
	}
	// slope 1.5, intercept 0.8333... -> t=3 predicts 5.3333 -> 5.33
	if got != 5.33 {
		t.Fatalf("expected 5.33, got %v", got)
	}
}

func TestForecastIdempotent(t *testing.T) {
	forecaster := NewForecaster()
	now := time.Now()
	series := seriesFromCounts(3, 1, 4, 1, 5)

	first, m1 := forecaster.Forecast(series, 7, now)
	second, m2 := forecaster.Forecast(series, 7, now)
	if m1 != m2 || len(first) != len(second) {
		t.Fatalf("forecast not deterministic")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("point %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}
