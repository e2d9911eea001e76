package worker

import (
	"manifeed/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for a Scrape Worker process.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for job consumption tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_job_runs_total: Total jobs processed by status (success/failure)
//   - worker_job_duration_seconds: Duration histogram of job processing
//   - worker_job_feeds_processed_total: Total feeds processed across jobs
//   - worker_job_last_success_timestamp: Unix timestamp of last successful job
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// JobRunsTotal counts the total number of jobs processed.
	// Type: Counter
	// Labels: status (success, failure)
	JobRunsTotal *prometheus.CounterVec

	// JobDurationSeconds measures the duration of job processing.
	// Type: Histogram
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m
	JobDurationSeconds prometheus.Histogram

	// JobFeedsProcessedTotal counts the total number of feeds processed.
	// Type: Counter
	JobFeedsProcessedTotal prometheus.Counter

	// JobLastSuccessTimestamp records the Unix timestamp of the last
	// successful job.
	// Type: Gauge
	JobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized. Metrics are created but not registered with Prometheus.
// Call MustRegister() to register.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of jobs processed by status (success/failure)",
		}, []string{"status"}),

		JobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		JobFeedsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_job_feeds_processed_total",
			Help: "Total number of feeds processed across all jobs",
		}),

		JobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful job",
		}),
	}
}

// MustRegister is a no-op method for API compatibility. Metrics are
// automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordJobRun increments the job run counter for the given status.
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a job's processing, in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.JobDurationSeconds.Observe(seconds)
}

// RecordFeedsProcessed adds the number of feeds processed to the total counter.
func (m *WorkerMetrics) RecordFeedsProcessed(count int) {
	m.JobFeedsProcessedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful job.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
