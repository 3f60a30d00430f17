package notary

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

type metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *metrics
)

// defaultMetrics registers the adapter collectors once per process and reuses
// collectors that are already registered.
func defaultMetrics() *metrics {
	metricsOnce.Do(func() {
		m := &metrics{
			invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cybervault",
				Subsystem: "notary",
				Name:      "invocations_total",
				Help:      "Count of external notarization CLI invocations",
			}, []string{"operation", "result"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cybervault",
				Subsystem: "notary",
				Name:      "duration_seconds",
				Help:      "Latency distribution of external notarization CLI invocations",
				Buckets:   durationBuckets,
			}, []string{"operation"}),
		}
		if err := prometheus.Register(m.invocations); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					m.invocations = existing
				}
			}
		}
		if err := prometheus.Register(m.duration); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
					m.duration = existing
				}
			}
		}
		sharedMetrics = m
	})
	return sharedMetrics
}

func (m *metrics) observe(operation string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.invocations.With(prometheus.Labels{"operation": operation, "result": result}).Inc()
	m.duration.With(prometheus.Labels{"operation": operation}).Observe(elapsed.Seconds())
}
