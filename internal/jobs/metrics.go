package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for sync runs.
type Metrics struct {
	runs      *prometheus.CounterVec
	failures  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	documents *prometheus.CounterVec
	skipped   *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the sync metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddDocuments counts reconciled documents per kind and outcome
// (created, updated, closed, failed).
func (m *Metrics) AddDocuments(kind, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.documents.WithLabelValues(kind, outcome).Add(float64(count))
}

// AddSkippedPages counts API pages dropped after a failed read.
func (m *Metrics) AddSkippedPages(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.skipped.WithLabelValues(kind).Add(float64(count))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sapsync_runs_total",
		Help: "Total sync runs partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sapsync_run_failures_total",
		Help: "Total failed sync runs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sapsync_run_duration_seconds",
		Help:    "Duration in seconds of sync runs.",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"job"})
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sapsync_documents_total",
		Help: "Documents reconciled grouped by kind and outcome.",
	}, []string{"kind", "outcome"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sapsync_skipped_pages_total",
		Help: "SAP API pages skipped after a failed read.",
	}, []string{"kind"})
	registerer.MustRegister(runs, failures, duration, documents, skipped)
	return &Metrics{runs: runs, failures: failures, duration: duration, documents: documents, skipped: skipped}
}
