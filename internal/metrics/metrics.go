// Package metrics registers Prometheus instrumentation for playlist
// ingestion. All fields are optional for callers: a nil *Metrics disables
// instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds ingestion and fetch counters for direct instrumentation.
type Metrics struct {
	FetchAttempts  *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	FetchExhausted prometheus.Counter

	IngestRuns     *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	CatalogItems   prometheus.Gauge
	CatalogSeries  prometheus.Gauge
}

// New creates and registers ingestion metrics with the given registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iptvcatalog",
			Subsystem: "fetch",
			Name:      "candidate_attempts_total",
			Help:      "Fetch attempts per retrieval candidate.",
		}, []string{"candidate"}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iptvcatalog",
			Subsystem: "fetch",
			Name:      "candidate_failures_total",
			Help:      "Failed fetch attempts per retrieval candidate.",
		}, []string{"candidate"}),
		FetchExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iptvcatalog",
			Subsystem: "fetch",
			Name:      "exhausted_total",
			Help:      "Fetches where every retrieval candidate failed.",
		}),
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iptvcatalog",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion runs by result (ready, failed, superseded).",
		}, []string{"result"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "iptvcatalog",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Duration of full ingestion runs (fetch through swap).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CatalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iptvcatalog",
			Subsystem: "catalog",
			Name:      "items",
			Help:      "Media items in the current catalog snapshot.",
		}),
		CatalogSeries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iptvcatalog",
			Subsystem: "catalog",
			Name:      "series",
			Help:      "Distinct series in the current catalog snapshot.",
		}),
	}

	reg.MustRegister(
		m.FetchAttempts,
		m.FetchFailures,
		m.FetchExhausted,
		m.IngestRuns,
		m.IngestDuration,
		m.CatalogItems,
		m.CatalogSeries,
	)

	return m
}
