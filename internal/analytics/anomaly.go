package analytics

import (
	"math"

	"github.com/si2astack/si2a-insights/internal/models"
)

// DefaultZThreshold is the |z-score| at or above which a day is flagged.
const DefaultZThreshold = 2.0

// Detector flags days in a dense series whose counts deviate from the
// population mean by at least the configured number of standard deviations.
type Detector struct {
	threshold float64
}

// NewDetector creates a Detector. Non-positive thresholds fall back to the
// default of 2.0.
func NewDetector(threshold float64) *Detector {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}
	return &Detector{threshold: threshold}
}

// Detect computes population mean/std over counts and returns the days
// whose |z-score| meets the threshold, in chronological order.
//
// The std used for the z-score division is substituted with 1.0 when the
// population standard deviation is exactly 0. That is deliberate contract
// behaviour, not a guard to be "fixed": a constant series then yields
// z = count - mean = 0 for every day and never flags, and division by zero
// can never surface to the dashboard. The returned std is the real one.
func (d *Detector) Detect(series []models.SeriesPoint) (mean, std float64, anomalies []models.AnomalyRecord) {
	anomalies = make([]models.AnomalyRecord, 0)
	if len(series) == 0 {
		return 0, 0, anomalies
	}

	for _, point := range series {
		mean += float64(point.Count)
	}
	mean /= float64(len(series))

	variance := 0.0
	for _, point := range series {
		diff := float64(point.Count) - mean
		variance += diff * diff
	}
	variance /= float64(len(series))
	std = math.Sqrt(variance)

	effectiveStd := std
	if effectiveStd == 0 {
		effectiveStd = 1.0
	}

	for _, point := range series {
		z := (float64(point.Count) - mean) / effectiveStd
		if math.Abs(z) >= d.threshold {
			anomalies = append(anomalies, models.AnomalyRecord{
				Date:   point.Date,
				Count:  point.Count,
				ZScore: z,
			})
		}
	}
	return mean, std, anomalies
}
