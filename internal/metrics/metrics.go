// Package metrics defines the Prometheus counters and histograms the
// Orchestrator updates once per run and once per iteration, exposed via
// internal/httpapi's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cir"

// Metrics holds every Prometheus collector the Orchestrator touches.
// Register it against a *prometheus.Registry rather than the global
// default registry so tests can build independent instances without
// duplicate-registration panics.
type Metrics struct {
	IterationsTotal  prometheus.Counter
	ToolErrorsTotal  *prometheus.CounterVec
	ReplansTotal     prometheus.Counter
	RunOutcomesTotal *prometheus.CounterVec
	RunDurationSecs  prometheus.Histogram
}

// New builds and registers a fresh Metrics instance against reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Total control-loop iterations executed across all runs.",
		}),
		ToolErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_errors_total",
			Help:      "Total tool-call failures by tool name and phase.",
		}, []string{"tool", "phase"}),
		ReplansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replans_total",
			Help:      "Total REPLAN decisions issued by the Mediator.",
		}),
		RunOutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Total runs by terminal status.",
		}, []string{"status"}),
		RunDurationSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of a full runTask invocation.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}
	reg.MustRegister(m.IterationsTotal, m.ToolErrorsTotal, m.ReplansTotal, m.RunOutcomesTotal, m.RunDurationSecs)
	return m
}

// NewRegistry builds a fresh Prometheus registry paired with a Metrics
// instance, the pairing internal/httpapi hands to promhttp.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, New(reg)
}
