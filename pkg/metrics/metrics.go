// Package metrics defines the Prometheus metric collectors used by the parser
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ParsesTotal          *prometheus.CounterVec
	ParseDuration        *prometheus.HistogramVec
	ParseChunks          prometheus.Histogram
	ParseWords           prometheus.Histogram
	SubmissionsTotal     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path and status code.",
			},
			[]string{"method", "path", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ParsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parses_total",
				Help: "Total parse operations by result (ok, scan_error, submit_error, timeout, error).",
			},
			[]string{"result"},
		),
		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parse_duration_seconds",
				Help:    "Parse latency in seconds by stage.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"stage"},
		),
		ParseChunks: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parse_chunks",
				Help:    "Number of chunks a document was split into.",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
			},
		),
		ParseWords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "parse_distinct_words",
				Help:    "Number of distinct words per parsed document.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_submissions_total",
				Help: "Index batches handed to the document store by status (ok, error, skipped).",
			},
			[]string{"status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parse_cache_hits_total",
				Help: "Total number of parse cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parse_cache_misses_total",
				Help: "Total number of parse cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ParsesTotal,
		m.ParseDuration,
		m.ParseChunks,
		m.ParseWords,
		m.SubmissionsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveStage records the duration of one parse stage in seconds.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.ParseDuration.WithLabelValues(stage).Observe(seconds)
}

// ParseResult counts a finished parse.
func (m *Metrics) ParseResult(result string) {
	if m == nil {
		return
	}
	m.ParsesTotal.WithLabelValues(result).Inc()
}

// ParseShape records how a document was split and how many words it held.
func (m *Metrics) ParseShape(chunks, words int) {
	if m == nil {
		return
	}
	m.ParseChunks.Observe(float64(chunks))
	m.ParseWords.Observe(float64(words))
}

// Submission counts an index batch handed to the store.
func (m *Metrics) Submission(status string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(status).Inc()
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// BreakerState sets the gauge for the named circuit breaker.
func (m *Metrics) BreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
