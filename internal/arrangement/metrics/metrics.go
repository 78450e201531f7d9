package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the arrangement lifecycle.
type Metrics struct {
	ArrangementsCreated prometheus.Counter
	Revocations         *prometheus.CounterVec
	RevocationDuration  prometheus.Histogram
}

// New creates and registers arrangement metrics.
func New() *Metrics {
	return &Metrics{
		ArrangementsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_arrangements_created_total",
			Help: "Total number of consent arrangements created",
		}),
		Revocations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_arrangement_revocations_total",
			Help: "Arrangement revocation attempts by outcome",
		}, []string{"outcome"}),
		RevocationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_arrangement_revocation_duration_ms",
			Help:    "Latency of arrangement revocations in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}

// RecordRevocation increments the outcome-labelled revocation counter.
func (m *Metrics) RecordRevocation(outcome string) {
	m.Revocations.WithLabelValues(outcome).Inc()
}
