package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels requests that produced a payload.
	OutcomeSuccess = "success"
	// OutcomeError labels requests that failed (bad input or dependency issues).
	OutcomeError = "error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "si2a_insights",
			Name:      "requests_total",
			Help:      "Total number of insight requests handled, partitioned by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "si2a_insights",
			Name:      "request_seconds",
			Help:      "Insight request latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10},
		},
		[]string{"endpoint"},
	)

	aiFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "si2a_insights",
			Name:      "ai_fallback_total",
			Help:      "Times the generative provider failed and the deterministic path served the request.",
		},
		[]string{"operation"},
	)
)

// Register attaches insight collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		requestsTotal,
		requestDurationSeconds,
		aiFallbackTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRequest records a request duration and outcome for an endpoint.
func ObserveRequest(endpoint string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	requestsTotal.WithLabelValues(endpoint, label).Inc()
	if duration < 0 {
		duration = 0
	}
	requestDurationSeconds.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveAIFallback increments the fallback counter for an operation.
func ObserveAIFallback(operation string) {
	aiFallbackTotal.WithLabelValues(operation).Inc()
}
