// Package metrics provides Prometheus metrics for the storyline service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AICallsTotal      *prometheus.CounterVec
	FallbacksTotal    *prometheus.CounterVec
	RegenQueueDepth   prometheus.Gauge
	RegenDroppedTotal prometheus.Counter
	RegenRunsTotal    *prometheus.CounterVec
	TrackingErrors    prometheus.Counter

	registry *prometheus.Registry
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_requests_total",
				Help: "Total API requests by endpoint and status code.",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storyline_request_duration_seconds",
				Help:    "Request processing duration by endpoint.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		AICallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_ai_calls_total",
				Help: "Generative backend calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_fallbacks_total",
				Help: "Deterministic fallback executions by operation.",
			},
			[]string{"operation"},
		),
		RegenQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "storyline_regen_queue_depth",
				Help: "Jobs currently queued for background regeneration.",
			},
		),
		RegenDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "storyline_regen_dropped_total",
				Help: "Regeneration jobs dropped because the queue was full.",
			},
		),
		RegenRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storyline_regen_runs_total",
				Help: "Background regeneration runs by result.",
			},
			[]string{"result"},
		),
		TrackingErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "storyline_tracking_errors_total",
				Help: "Swallowed call-tracking write failures.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AICallsTotal,
		m.FallbacksTotal,
		m.RegenQueueDepth,
		m.RegenDroppedTotal,
		m.RegenRunsTotal,
		m.TrackingErrors,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(endpoint, status string) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordAICall counts one generative backend attempt.
func (m *Metrics) RecordAICall(operation, outcome string) {
	m.AICallsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordFallback counts one deterministic fallback execution.
func (m *Metrics) RecordFallback(operation string) {
	m.FallbacksTotal.WithLabelValues(operation).Inc()
}
