// Package metrics provides Prometheus metrics for the sync service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-blackswan/progress-sync/internal/engine"
)

// Metrics holds all Prometheus metrics for the syncer.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec
	RowsTotal       *prometheus.CounterVec
	ProtectionsHits *prometheus.CounterVec
	WriteFailures   prometheus.Counter
	RunDuration     prometheus.Histogram
	LastRunUnix     prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_runs_total",
				Help: "Total reconciliation runs by result.",
			},
			[]string{"result"},
		),
		RowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_rows_total",
				Help: "Rows processed by terminal state.",
			},
			[]string{"state"},
		),
		ProtectionsHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_protections_total",
				Help: "Writes suppressed by protection, by field.",
			},
			[]string{"field"},
		),
		WriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "sync_write_failures_total",
				Help: "Store writes rejected during runs.",
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sync_run_duration_seconds",
				Help:    "Wall-clock duration of reconciliation runs.",
				Buckets: prometheus.DefBuckets,
			},
		),
		LastRunUnix: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sync_last_run_timestamp_seconds",
				Help: "Unix time the last run finished.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.RunsTotal, m.RowsTotal, m.ProtectionsHits, m.WriteFailures, m.RunDuration, m.LastRunUnix)
	return m
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (for tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a completed run from its summary.
func (m *Metrics) ObserveRun(sum *engine.Summary) {
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.RunDuration.Observe(sum.Duration().Seconds())
	m.LastRunUnix.Set(float64(sum.FinishedAt.Unix()))
	m.WriteFailures.Add(float64(sum.WriteFails))

	for _, o := range sum.Outcomes {
		m.RowsTotal.WithLabelValues(string(o.State)).Inc()
		if o.Progress != nil && o.Progress.Protected() {
			m.ProtectionsHits.WithLabelValues("progress").Inc()
		}
		if o.Status != nil && !o.Status.WriteAllowed {
			m.ProtectionsHits.WithLabelValues("status").Inc()
		}
		if o.Start != nil && !o.Start.WriteAllowed {
			m.ProtectionsHits.WithLabelValues("start").Inc()
		}
		if o.End != nil && !o.End.WriteAllowed {
			m.ProtectionsHits.WithLabelValues("end").Inc()
		}
	}
}

// ObserveRunError records a run that failed outright.
func (m *Metrics) ObserveRunError() {
	m.RunsTotal.WithLabelValues("error").Inc()
}
