package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/upstream"
)

// Metrics bundles Prometheus collectors for the HTTP API, the upstream client
// and the cache store.
type Metrics struct {
	registry         *prometheus.Registry
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
}

var (
	_ cache.Observer    = (*Metrics)(nil)
	_ upstream.Observer = (*Metrics)(nil)
)

// NewMetrics builds the collectors on a private registry. The binaries create
// it before the cache and upstream client so both can report into it.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatvault",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatvault",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatvault",
			Name:      "http_rate_limited_total",
			Help:      "Lookups rejected by the per-client provider budget",
		}, []string{"provider"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatvault",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to provider APIs",
		}, []string{"provider", "op", "status"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatvault",
			Name:      "upstream_request_duration_seconds",
			Help:      "Histogram of provider API latencies",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatvault",
			Name:      "cache_lookups_total",
			Help:      "Cache-aside lookups by outcome",
		}, []string{"key", "result"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.rateLimited,
		m.upstreamTotal,
		m.upstreamDuration,
		m.cacheLookups,
	)

	return m
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records timing and status information.
func (m *Metrics) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// IncRateLimited counts a lookup rejected for provider.
func (m *Metrics) IncRateLimited(provider string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(provider).Inc()
}

// ObserveUpstream records one provider API call. status 0 means the request
// never got a response.
func (m *Metrics) ObserveUpstream(provider, op string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.upstreamTotal.WithLabelValues(provider, op, strconv.Itoa(status)).Inc()
	m.upstreamDuration.WithLabelValues(provider).Observe(dur.Seconds())
}

// ObserveCache records one GetOrCache outcome.
func (m *Metrics) ObserveCache(key, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(key, result).Inc()
}
