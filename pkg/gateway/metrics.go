package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "voxbridge"

// Metrics holds the gateway's Prometheus collectors on a private
// registry so tests can run side by side.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions  prometheus.Gauge
	FramesForwarded prometheus.Counter
	DroppedAudio    prometheus.Counter
	ToolInvocations *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions currently open",
		}),
		FramesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_forwarded_total",
			Help:      "Total client frames forwarded into sessions",
		}),
		DroppedAudio: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_audio_chunks_total",
			Help:      "Total audio chunks discarded by full ingestion buffers",
		}),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tool_invocations_total",
			Help:      "Total tool dispatches by tool name and outcome",
		}, []string{"tool", "outcome"}),
	}

	m.registry.MustRegister(
		m.ActiveSessions,
		m.FramesForwarded,
		m.DroppedAudio,
		m.ToolInvocations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTool matches the tool registry observer signature.
func (m *Metrics) ObserveTool(tool, outcome string) {
	m.ToolInvocations.WithLabelValues(tool, outcome).Inc()
}

// AudioDropped matches the session manager drop callback signature.
func (m *Metrics) AudioDropped(string) {
	m.DroppedAudio.Inc()
}
