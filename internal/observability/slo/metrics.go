package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets define the service level objectives for the crawl pipeline.
// These targets are used to measure and monitor whether scrape jobs are
// completing reliably.
const (
	// JobSuccessRateSLO defines the target ratio of jobs that finish
	// without error (99% = at most 1 in 100 jobs ends in an error state).
	JobSuccessRateSLO = 0.99

	// JobErrorRateSLO defines the maximum acceptable ratio of jobs that
	// finish with at least one feed error.
	JobErrorRateSLO = 0.01
)

// SLO tracking metrics.
// These gauges are updated whenever a job reaches a terminal status, based
// on a rolling count of recent job outcomes maintained by the persistence
// service.
var (
	// JobSuccessRate tracks the current ratio (0-1) of terminal jobs that
	// completed with no feed errors.
	JobSuccessRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_job_success_rate_ratio",
			Help: "Current ratio of jobs completing without error (0-1), target: 0.99",
		},
	)

	// JobErrorRate tracks the current ratio (0-1) of terminal jobs that
	// completed with at least one feed error.
	JobErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_job_error_rate_ratio",
			Help: "Current ratio of jobs completing with errors (0-1), target: 0.01",
		},
	)
)

// UpdateJobSuccessRate updates the job success-rate SLO gauge. Call this
// whenever a rolling window of terminal jobs is recomputed.
//
// Example calculation:
//
//	successful := completedCount - erroredCount
//	slo.UpdateJobSuccessRate(float64(successful) / float64(completedCount))
func UpdateJobSuccessRate(ratio float64) {
	JobSuccessRate.Set(ratio)
}

// UpdateJobErrorRate updates the job error-rate SLO gauge.
//
// Percentile latency is not tracked here as a hand-maintained gauge;
// job_completion_duration_seconds is a histogram, so p95/p99 are derived
// downstream with histogram_quantile(0.95, rate(job_completion_duration_seconds_bucket[5m])).
func UpdateJobErrorRate(ratio float64) {
	JobErrorRate.Set(ratio)
}
