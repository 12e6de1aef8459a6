package analytics

import (
	"math"
	"time"

	"github.com/si2astack/si2a-insights/internal/models"
)

// Forecast methods reported alongside the projection.
const (
	// MethodNaive is the flat-rate projection used when no history exists.
	MethodNaive = "naive"
	// MethodNaiveLast is the degenerate-fit projection for single-point series.
	MethodNaiveLast = "naive_last"
	// MethodLinearTrend is the ordinary least-squares projection.
	MethodLinearTrend = "linear_trend"
)

// naiveDailyRate is the fixed policy rate used when there is no history to
// fit. It is a constant, not learned.
const naiveDailyRate = 5.0

// Forecaster projects daily incident counts forward from a dense series.
type Forecaster struct{}

// NewForecaster creates a Forecaster.
func NewForecaster() *Forecaster {
	return &Forecaster{}
}

// Forecast fits a least-squares line to the series and projects it
// horizonDays forward, returning the projection and the method used.
//
// Precondition: the caller clamps horizonDays to [1, 60] before invoking.
//
// Fallback policy, never an error:
//   - empty series: flat naiveDailyRate per day starting the day after now,
//     method "naive";
//   - single point (degenerate fit, denom == 0): slope 0, intercept mean,
//     method "naive_last";
//   - otherwise closed-form OLS, method "linear_trend".
//
// Predictions are clamped to >= 0 and rounded to 2 decimals; forecast dates
// are contiguous and strictly increasing from the day after the last
// observed date.
func (f *Forecaster) Forecast(series []models.SeriesPoint, horizonDays int, now time.Time) ([]models.ForecastPoint, string) {
	if len(series) == 0 {
		start := models.DateOf(now)
		forecast := make([]models.ForecastPoint, 0, horizonDays)
		for i := 1; i <= horizonDays; i++ {
			forecast = append(forecast, models.ForecastPoint{
				Date:      start.AddDays(i),
				Predicted: naiveDailyRate,
			})
		}
		return forecast, MethodNaive
	}

	n := float64(len(series))
	var sumT, sumY, sumTT, sumTY float64
	for i, point := range series {
		t := float64(i)
		y := float64(point.Count)
		sumT += t
		sumY += y
		sumTT += t * t
		sumTY += t * y
	}

	var slope, intercept float64
	method := MethodLinearTrend
	denom := n*sumTT - sumT*sumT
	if denom == 0 {
		slope = 0
		intercept = sumY / n
		method = MethodNaiveLast
	} else {
		slope = (n*sumTY - sumT*sumY) / denom
		intercept = (sumY - slope*sumT) / n
	}

	lastT := n - 1
	lastDate := series[len(series)-1].Date
	forecast := make([]models.ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		predicted := math.Max(0, slope*(lastT+float64(i))+intercept)
		forecast = append(forecast, models.ForecastPoint{
			Date:      lastDate.AddDays(i),
			Predicted: round2(predicted),
		})
	}
	return forecast, method
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
