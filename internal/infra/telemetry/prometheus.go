package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine's Prometheus instruments. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	provisions        *prometheus.CounterVec
	activeScopes      prometheus.Gauge
	handshakeDuration prometheus.Histogram
	invocations       *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		provisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolforge_provisions_total",
				Help: "Total number of toolset provisioning attempts",
			},
			[]string{"toolset", "status"},
		),
		activeScopes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "toolforge_active_scopes",
				Help: "Current number of open provisioning scopes",
			},
		),
		handshakeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "toolforge_handshake_duration_seconds",
				Help:    "Duration of tool server launch and handshake in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolforge_tool_invocations_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool", "status"},
		),
	}
}

func (m *Metrics) ObserveProvision(toolset string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.provisions.WithLabelValues(toolset, statusLabel(err)).Inc()
	if err == nil {
		m.handshakeDuration.Observe(duration.Seconds())
	}
}

func (m *Metrics) ScopeOpened() {
	if m == nil {
		return
	}
	m.activeScopes.Inc()
}

func (m *Metrics) ScopeClosed() {
	if m == nil {
		return
	}
	m.activeScopes.Dec()
}

func (m *Metrics) ObserveInvocation(tool string, err error) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(tool, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
