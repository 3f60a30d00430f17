package httpx

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestRouterMetricsShareCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newRouterMetrics(reg)
	second := newRouterMetrics(reg)
	if first.requests != second.requests || first.throttled != second.throttled {
		t.Fatalf("expected the second router to reuse registered collectors")
	}

	first.observeRequest(http.MethodGet, "/api/dids", http.StatusOK, 30*time.Millisecond)
	second.observeRequest(http.MethodGet, "/api/dids", http.StatusOK, 10*time.Millisecond)
	second.rateLimited("/api", "ip")

	var disabled *routerMetrics
	disabled.observeRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	disabled.rateLimited("/api", "ip")

	if got := counterTotal(t, reg, "cybervault_api_http_requests_total"); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := counterTotal(t, reg, "cybervault_api_rate_limit_hits_total"); got != 1 {
		t.Fatalf("expected 1 rate limit hit, got %v", got)
	}
}

func TestRouterCountsRejectedRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	env := newTestEnv(t, func(d *Deps) {
		d.RateLimit = 1
		d.Metrics = reg
	})

	env.do(t, http.MethodGet, "/api/dids", nil, nil)
	rec := env.do(t, http.MethodGet, "/api/dids", nil, nil)
	expectMessage(t, rec, http.StatusTooManyRequests, "rate limit exceeded")

	if got := counterTotal(t, reg, "cybervault_api_rate_limit_hits_total"); got != 1 {
		t.Fatalf("expected 1 rate limit hit, got %v", got)
	}
	if got := counterTotal(t, reg, "cybervault_api_http_requests_total"); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
}
