// Package metrics exposes Prometheus counters for generation runs. Runs are
// short-lived CLI invocations, so the registry is written to a node_exporter
// textfile when the run ends instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for metaforge
type Metrics struct {
	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	RunAgents   prometheus.Histogram
	RunsActive  prometheus.Gauge

	// State machine metrics
	StateTransitions *prometheus.CounterVec

	// Error metrics (by error code from coded errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaforge_runs_total",
				Help: "Total number of generation runs by final status",
			},
			[]string{"status", "mode"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metaforge_run_duration_seconds",
				Help:    "Generation run duration in seconds",
				Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
			},
			[]string{"mode"},
		),
		RunAgents: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metaforge_run_agents",
				Help:    "Number of agents in the executed blueprint",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
			},
		),
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "metaforge_runs_active",
				Help: "Runs started and not yet finished",
			},
		),
		StateTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaforge_state_transitions_total",
				Help: "Total number of orchestrator state transitions by target state",
			},
			[]string{"state"},
		),
		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metaforge_errors_total",
				Help: "Total number of failed runs by error code",
			},
			[]string{"error_code"},
		),
	}
}
