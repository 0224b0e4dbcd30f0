package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubmissionMetrics records pipeline outcomes per entity type.
type SubmissionMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	drafts   prometheus.Gauge
}

// NewSubmissionMetrics registers the pipeline metrics on the provided
// registerer. A nil registerer yields a no-op recorder, which tests use.
func NewSubmissionMetrics(reg prometheus.Registerer) *SubmissionMetrics {
	if reg == nil {
		return &SubmissionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "submission_duration_seconds",
		Help:    "Duration of form submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity", "result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submission_total",
		Help: "Form submissions by entity and terminal result.",
	}, []string{"entity", "result"})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_upload_total",
		Help: "Image uploads by result.",
	}, []string{"result"})
	drafts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "open_drafts",
		Help: "Draft sessions currently open.",
	})
	reg.MustRegister(duration, outcomes, uploads, drafts)
	return &SubmissionMetrics{
		duration: duration,
		outcomes: outcomes,
		uploads:  uploads,
		drafts:   drafts,
	}
}

// ObserveSubmission records one terminal submission outcome.
func (m *SubmissionMetrics) ObserveSubmission(entity, result string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	entity = normalizeLabel(entity)
	result = normalizeLabel(result)
	m.duration.WithLabelValues(entity, result).Observe(elapsed.Seconds())
	m.outcomes.WithLabelValues(entity, result).Inc()
}

// IncUpload counts one image upload attempt.
func (m *SubmissionMetrics) IncUpload(result string) {
	if m == nil || m.uploads == nil {
		return
	}
	m.uploads.WithLabelValues(normalizeLabel(result)).Inc()
}

// SetOpenDrafts reports the current number of open draft sessions.
func (m *SubmissionMetrics) SetOpenDrafts(count int) {
	if m == nil || m.drafts == nil {
		return
	}
	m.drafts.Set(float64(count))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
