// File: internal/observability/metrics.go
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors describing batch execution.
type Metrics struct {
	casesTotal    *prometheus.CounterVec
	caseDuration  *prometheus.HistogramVec
	batchesActive prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		casesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "casepilot",
			Name:      "cases_total",
			Help:      "Test cases executed, by bucket and outcome.",
		}, []string{"bucket", "status"}),
		caseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "casepilot",
			Name:      "case_duration_seconds",
			Help:      "Wall time spent executing a single test case.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"bucket"}),
		batchesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "casepilot",
			Name:      "batches_active",
			Help:      "Batches currently executing.",
		}),
	}
	for _, c := range []prometheus.Collector{m.casesTotal, m.caseDuration, m.batchesActive} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNewMetrics is NewMetrics that panics on registration errors.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(reg)
	if err != nil {
		panic(err)
	}
	return m
}

// ObserveCase records one finished case. A nil receiver is a no-op.
func (m *Metrics) ObserveCase(bucket, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.casesTotal.WithLabelValues(bucket, status).Inc()
	m.caseDuration.WithLabelValues(bucket).Observe(elapsed.Seconds())
}

// BatchStarted marks a batch as running and returns the function that ends it.
func (m *Metrics) BatchStarted() func() {
	if m == nil {
		return func() {}
	}
	m.batchesActive.Inc()
	return m.batchesActive.Dec
}
