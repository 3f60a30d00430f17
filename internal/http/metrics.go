package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "cybervault"
	metricsSubsystem = "api"
)

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// routerMetrics holds the collectors the HTTP layer reports through. A nil
// *routerMetrics records nothing.
type routerMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttled *prometheus.CounterVec
}

// newRouterMetrics registers the HTTP collectors with reg. Routers built more
// than once in a process share the collectors registered first.
func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &routerMetrics{
		requests: mustShare(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route template and status.",
		}, []string{"method", "route", "status"})),
		latency: mustShare(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent in HTTP handlers, by route template and status.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"})),
		throttled: mustShare(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by a rate limit, by limit label and key kind.",
		}, []string{"route", "key"})),
	}
}

// mustShare registers c, or returns the equivalent collector already
// registered. Any other registration error is a programming mistake.
func mustShare[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (m *routerMetrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(method, route, code).Inc()
	m.latency.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

func (m *routerMetrics) rateLimited(route, key string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(route, key).Inc()
}
