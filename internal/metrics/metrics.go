// Package metrics provides Prometheus metrics for the relay.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// Delivery outcomes recorded by FileDeliveries.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
)

// Deletion results recorded by FileDeletions.
const (
	DeletionDeleted = "deleted"
	DeletionAbsent  = "absent"
	DeletionFailed  = "failed"
)

// Metrics holds all Prometheus metric collectors for the relay.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	FileDeliveries *prometheus.CounterVec
	FileDeletions  *prometheus.CounterVec
	BytesStreamed  *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_api_relay_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bot_api_relay_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds, including body streaming.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_api_relay_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bot_api_relay_upstream_request_duration_seconds",
			Help:    "Time until upstream response headers, in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),
		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_api_relay_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),
		FileDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_api_relay_file_deliveries_total",
			Help: "File download requests by outcome.",
		}, []string{"outcome"}),
		FileDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_api_relay_file_deletions_total",
			Help: "Post-delivery file removals by result.",
		}, []string{"result"}),
		BytesStreamed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_api_relay_bytes_streamed_total",
			Help: "Response body bytes written to clients.",
		}, []string{"engine"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.FileDeliveries,
		m.FileDeletions,
		m.BytesStreamed,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownPrefixes lists the allowed path label values (bounded cardinality).
var knownPrefixes = []string{"/file", "/healthz", "/relay/status", "/metrics"}

// NormalizePath returns a bounded path label for Prometheus metrics.
// Bot API method calls (/bot<token>/...) collapse to "/bot" so tokens
// never become label values.
func NormalizePath(path string) string {
	for _, prefix := range knownPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	if strings.HasPrefix(path, "/bot") {
		return "/bot"
	}
	return "other"
}
