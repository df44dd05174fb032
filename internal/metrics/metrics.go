// Package metrics collects Prometheus instrumentation for the turn
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors on a dedicated registry so tests
// can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal          *prometheus.CounterVec
	GuardrailTripsTotal *prometheus.CounterVec
	UpstreamRetries     prometheus.Counter
	TurnDuration        prometheus.Histogram
	RateLimitRejections prometheus.Counter
}

// New creates a Metrics instance with its own registry, including the
// standard Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Completed chat turns by outcome.",
		}, []string{"outcome"}),
		GuardrailTripsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_guardrail_trips_total",
			Help: "Guardrail trips by guardrail name.",
		}, []string{"guardrail"}),
		UpstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_upstream_retries_total",
			Help: "Retried upstream inference attempts.",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Wall-clock duration of a full chat turn.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		RateLimitRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_rate_limit_rejections_total",
			Help: "Requests rejected by the per-client rate limiter.",
		}),
	}
	registry.MustRegister(
		m.TurnsTotal,
		m.GuardrailTripsTotal,
		m.UpstreamRetries,
		m.TurnDuration,
		m.RateLimitRejections,
	)
	return m
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
