// Package metrics holds the Prometheus collectors of the acquisition engine.
// Every method is nil-safe so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optacq"

// Metrics is a private registry plus the engine's collectors
type Metrics struct {
	registry *prometheus.Registry

	CacheLookups      *prometheus.CounterVec
	FetchAttempts     *prometheus.CounterVec
	FetchOutcomes     *prometheus.CounterVec
	RowStatus         *prometheus.CounterVec
	ProcessingSeconds prometheus.Histogram
	GateWaitSeconds   prometheus.Histogram
	RunDuration       prometheus.Histogram
	RunsTotal         prometheus.Counter
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Chain cache lookups by record kind and result",
			},
			[]string{"kind", "result"},
		),

		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Upstream fetch attempts by operation and attempt status",
			},
			[]string{"op", "status"},
		),

		FetchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_outcomes_total",
				Help:      "Final fetch status after the retry budget",
			},
			[]string{"op", "status"},
		),

		RowStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "acquisition_rows_total",
				Help:      "Acquisition result rows by status",
			},
			[]string{"status"},
		),

		ProcessingSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_processing_seconds",
				Help:      "Per-request processing time",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		GateWaitSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rate_gate_wait_seconds",
				Help:      "Time spent waiting on the global rate gate",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end engine run duration",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
		),

		RunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Engine runs started",
			},
		),
	}

	m.registry.MustRegister(
		m.CacheLookups,
		m.FetchAttempts,
		m.FetchOutcomes,
		m.RowStatus,
		m.ProcessingSeconds,
		m.GateWaitSeconds,
		m.RunDuration,
		m.RunsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (tests, custom exporters)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheLookup records one cache read
func (m *Metrics) CacheLookup(kind, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// FetchAttempt records one upstream attempt
func (m *Metrics) FetchAttempt(op, status string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(op, status).Inc()
}

// FetchOutcome records the final status of one fetch
func (m *Metrics) FetchOutcome(op, status string) {
	if m == nil {
		return
	}
	m.FetchOutcomes.WithLabelValues(op, status).Inc()
}

// Row records one acquisition result row
func (m *Metrics) Row(status string, processing time.Duration) {
	if m == nil {
		return
	}
	m.RowStatus.WithLabelValues(status).Inc()
	m.ProcessingSeconds.Observe(processing.Seconds())
}

// GateWait records time blocked on the rate gate
func (m *Metrics) GateWait(d time.Duration) {
	if m == nil {
		return
	}
	m.GateWaitSeconds.Observe(d.Seconds())
}

// Run records one engine run
func (m *Metrics) Run(d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
	m.RunDuration.Observe(d.Seconds())
}
