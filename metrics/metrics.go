// Package metrics holds the prometheus collectors exported by a dbmcp server.
//
// Each Metrics value owns a private registry so that several servers in one
// process (or one test binary) never collide on collector registration.
// Every method is safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status labels for tool calls.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Metrics is the set of collectors for one server.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	adapterUp    *prometheus.GaugeVec
	adapters     prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbmcp_tool_calls_total",
				Help: "Total number of tool calls",
			},
			[]string{"tool", "status"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbmcp_tool_call_duration_seconds",
				Help:    "Tool call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"tool"},
		),
		adapterUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dbmcp_adapter_up",
				Help: "Whether the last health probe of an adapter succeeded (1) or not (0)",
			},
			[]string{"adapter"},
		),
		adapters: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dbmcp_adapters_registered",
				Help: "Number of adapters in the registry",
			},
		),
	}
	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.adapterUp,
		m.adapters,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveToolCall records one finished tool call.
func (m *Metrics) ObserveToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// SetAdapterUp records the outcome of the latest health probe.
func (m *Metrics) SetAdapterUp(identity string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.adapterUp.WithLabelValues(identity).Set(v)
}

// ForgetAdapter drops the per-adapter series of a removed adapter.
func (m *Metrics) ForgetAdapter(identity string) {
	if m == nil {
		return
	}
	m.adapterUp.DeleteLabelValues(identity)
}

// SetAdapters records the registry size.
func (m *Metrics) SetAdapters(n int) {
	if m == nil {
		return
	}
	m.adapters.Set(float64(n))
}

// Registry returns the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
