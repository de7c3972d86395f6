package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the extraction pipeline. All
// methods are nil-safe so components can run without metrics wired.
type Metrics struct {
	Registry          *prometheus.Registry
	OutcomesTotal     *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ExtractionSeconds prometheus.Histogram
	RunsTotal         *prometheus.CounterVec
	CellWritesTotal   prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "margin_outcomes_total",
			Help: "Extraction outcomes per ASIN, by result.",
		},
		[]string{"result"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "margin_retries_total",
			Help: "Total retry attempts across all UI phases.",
		},
	)
	extractionSeconds := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "margin_extraction_duration_seconds",
			Help:    "Wall time spent extracting one ASIN.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "margin_runs_total",
			Help: "Completed extraction runs, by final status.",
		},
		[]string{"status"},
	)
	cellWrites := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "margin_cell_writes_total",
			Help: "Total cells written back to the row store.",
		},
	)

	registry.MustRegister(outcomes, retries, extractionSeconds, runs, cellWrites)

	return &Metrics{
		Registry:          registry,
		OutcomesTotal:     outcomes,
		RetriesTotal:      retries,
		ExtractionSeconds: extractionSeconds,
		RunsTotal:         runs,
		CellWritesTotal:   cellWrites,
	}
}

// IncOutcome counts one terminal outcome for an identifier.
func (m *Metrics) IncOutcome(result string) {
	if m == nil {
		return
	}
	m.OutcomesTotal.WithLabelValues(result).Inc()
}

// IncRetries counts one scheduled retry attempt.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// ObserveExtraction records how long one identifier took end to end.
func (m *Metrics) ObserveExtraction(d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionSeconds.Observe(d.Seconds())
}

// IncRun counts one finished run.
func (m *Metrics) IncRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// IncCellWrite counts one successful row-store write.
func (m *Metrics) IncCellWrite() {
	if m == nil {
		return
	}
	m.CellWritesTotal.Inc()
}
