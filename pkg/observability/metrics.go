package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the orchestrator's Prometheus instruments
type Metrics struct {
	RequestsInFlight   prometheus.Gauge
	RequestsSettled    *prometheus.CounterVec
	StreamChunks       prometheus.Counter
	CompletionDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates and registers the instruments on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "canvasflow",
			Name:      "requests_in_flight",
			Help:      "Completion requests currently streaming.",
		}),
		RequestsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasflow",
			Name:      "requests_settled_total",
			Help:      "Completion requests by terminal outcome.",
		}, []string{"outcome"}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "canvasflow",
			Name:      "stream_chunks_total",
			Help:      "Streamed chunks applied to response nodes.",
		}),
		CompletionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "canvasflow",
			Name:      "completion_duration_seconds",
			Help:      "Transport round-trip time per request.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		registry: registry,
	}

	registry.MustRegister(m.RequestsInFlight, m.RequestsSettled, m.StreamChunks, m.CompletionDuration)
	return m
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
