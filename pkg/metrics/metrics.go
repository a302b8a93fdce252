// Package metrics provides Prometheus metrics for boolean runs
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records engine attempts, healing runs and pipeline outcomes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EngineAttempts  *prometheus.CounterVec
	EngineDuration  *prometheus.HistogramVec
	HealRuns        *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	OutputTriangles prometheus.Gauge
}

// New registers the meshbool metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EngineAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshbool_engine_attempts_total",
				Help: "Total number of boolean engine attempts",
			},
			[]string{"engine", "op", "status"},
		),
		EngineDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meshbool_engine_duration_seconds",
				Help:    "Time taken by a single boolean engine attempt",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"engine", "op"},
		),
		HealRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshbool_heal_runs_total",
				Help: "Total number of mesh repairs",
			},
			[]string{"result"},
		),
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshbool_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"op", "result"},
		),
		OutputTriangles: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshbool_output_triangles",
				Help: "Triangle count of the last exported mesh",
			},
		),
	}
}

// RecordAttempt records one engine attempt
func (m *Metrics) RecordAttempt(engine, op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EngineAttempts.WithLabelValues(engine, op, status).Inc()
	m.EngineDuration.WithLabelValues(engine, op).Observe(duration.Seconds())
}

// RecordHeal records a repair outcome ("ok", "failed" or "skipped")
func (m *Metrics) RecordHeal(result string) {
	if m == nil {
		return
	}
	m.HealRuns.WithLabelValues(result).Inc()
}

// RecordRun records the outcome of a pipeline run
func (m *Metrics) RecordRun(op, result string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(op, result).Inc()
}

// SetOutputTriangles records the size of the exported mesh
func (m *Metrics) SetOutputTriangles(n int) {
	if m == nil {
		return
	}
	m.OutputTriangles.Set(float64(n))
}

// WriteTextfile writes every metric gathered by g to path in the
// node_exporter textfile collector format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
