package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate on the tool surface. Watch for: sudden drops or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Dominated by the upstream history call.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap history API call rate by status label.
	HistoryAPICallsTotal *prometheus.CounterVec

	// History API latency per request. History queries over long ranges are slow; p99 > 10s is suspect.
	HistoryAPIDuration *prometheus.HistogramVec

	// Tool invocations by outcome (success | error).
	ToolInvocationsTotal *prometheus.CounterVec

	// Tool failures by category. The caller only ever sees the sentinel; this is where the cause lives.
	ToolErrorsTotal *prometheus.CounterVec

	// Rate limit denials on the inbound HTTP surface.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	HistoryAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "historyApiCallsTotal",
			Help: "Total number of OpenWeatherMap history API calls",
		},
		[]string{"status"},
	)
	HistoryAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "historyApiDurationSeconds",
			Help:    "OpenWeatherMap history API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)
	ToolInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolInvocationsTotal",
			Help: "Total number of tool invocations by outcome",
		},
		[]string{"tool", "outcome"},
	)
	ToolErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toolErrorsTotal",
			Help: "Tool failures collapsed to the error descriptor, by cause",
		},
		[]string{"tool", "category"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		HistoryAPICallsTotal, HistoryAPIDuration,
		ToolInvocationsTotal, ToolErrorsTotal,
		RateLimitDeniedTotal,
	)
}

// RecordToolInvocation counts one tool call. An empty category means success.
func RecordToolInvocation(tool, category string) {
	if category == "" {
		ToolInvocationsTotal.WithLabelValues(tool, "success").Inc()
		return
	}
	ToolInvocationsTotal.WithLabelValues(tool, "error").Inc()
	ToolErrorsTotal.WithLabelValues(tool, category).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
