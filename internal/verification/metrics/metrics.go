package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module.
type Metrics struct {
	// Verification run outcomes by decision action
	RunOutcome *prometheus.CounterVec

	// Per-check confidence distribution by check name
	CheckConfidence *prometheus.HistogramVec

	// Document extractions by method
	Extractions *prometheus.CounterVec

	// Full run latency including extraction and all checks
	RunLatency prometheus.Histogram
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		RunOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bursary_verification_runs_total",
			Help: "Total verification runs by decision action",
		}, []string{"action"}),

		CheckConfidence: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bursary_verification_check_confidence",
			Help:    "Confidence score distribution per verification check",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		}, []string{"check"}), // check: "identity", "authenticity", "validity", "completeness", "fraud"

		Extractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bursary_document_extractions_total",
			Help: "Total document extractions by method",
		}, []string{"method"}),

		RunLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bursary_verification_run_duration_seconds",
			Help:    "Duration of full verification runs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// IncrementRunOutcome records a completed run's decision action.
func (m *Metrics) IncrementRunOutcome(action string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(action).Inc()
	}
}

// ObserveCheckConfidence records the confidence produced by one check.
func (m *Metrics) ObserveCheckConfidence(check string, confidence float64) {
	if m != nil {
		m.CheckConfidence.WithLabelValues(check).Observe(confidence)
	}
}

// IncrementExtraction records one document extraction by method.
func (m *Metrics) IncrementExtraction(method string) {
	if m != nil {
		m.Extractions.WithLabelValues(method).Inc()
	}
}

// ObserveRunLatency records the total run duration.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}
