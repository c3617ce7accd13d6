package observability

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons recorded on attribution_checks_skipped_total.
const (
	SkipReasonDisabled      = "disabled"
	SkipReasonRateLimited   = "rate_limited"
	SkipReasonSettingsError = "settings_error"
)

// Outcome labels for submissions and settings saves.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Check metrics
	ChecksTotal        prometheus.Counter
	ChecksSkippedTotal *prometheus.CounterVec

	// Submission metrics
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram

	// Settings persistence metrics
	SettingsSavesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ChecksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "attribution_checks_total",
				Help: "Total number of attribution checks run",
			},
		),
		ChecksSkippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attribution_checks_skipped_total",
				Help: "Attribution checks that decided not to submit",
			},
			[]string{"reason"},
		),
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attribution_submissions_total",
				Help: "Total number of metric submissions",
			},
			[]string{"status"},
		),
		SubmissionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "attribution_submission_duration_seconds",
				Help:    "Metric submission duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SettingsSavesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attribution_settings_saves_total",
				Help: "Total number of preferences file saves",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.ChecksTotal,
		m.ChecksSkippedTotal,
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.SettingsSavesTotal,
	)

	return m
}

// RecordCheck counts one attribution check. Safe on a nil receiver so the
// manager runs unchanged when metrics are disabled.
func (m *Metrics) RecordCheck() {
	if m == nil {
		return
	}
	m.ChecksTotal.Inc()
}

// RecordCheckSkipped counts a check that decided not to submit.
func (m *Metrics) RecordCheckSkipped(reason string) {
	if m == nil {
		return
	}
	m.ChecksSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordSubmission counts one submission attempt and its duration.
func (m *Metrics) RecordSubmission(status string, seconds float64) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(status).Inc()
	m.SubmissionDuration.Observe(seconds)
}

// RecordSettingsSave counts one preferences file save attempt.
func (m *Metrics) RecordSettingsSave(status string) {
	if m == nil {
		return
	}
	m.SettingsSavesTotal.WithLabelValues(status).Inc()
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, registry *prometheus.Registry) {
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
}
