// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Pipeline metrics track the Job Orchestrator / Scrape Worker / Result
// Persistence Service crawl pipeline.
var (
	// JobsEnqueuedTotal counts jobs the orchestrator created, by kind
	// (check, ingest) and trigger (manual, cron).
	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of scrape jobs enqueued",
		},
		[]string{"kind", "trigger"},
	)

	// JobFeedsEnqueuedTotal counts the individual feed-fetch requests
	// batched into jobs, by kind.
	JobFeedsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_feeds_enqueued_total",
			Help: "Total number of per-feed fetch requests enqueued across all jobs",
		},
		[]string{"kind"},
	)

	// JobResultsTotal counts JobResult rows the persistence service applied,
	// by queue kind and result status (success, not_modified, error).
	JobResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_results_total",
			Help: "Total number of worker results applied by the persistence service",
		},
		[]string{"queue_kind", "status"},
	)

	// JobCompletionDuration measures wall-clock time from Job.RequestedAt to
	// the terminal status transition, by final status.
	JobCompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_completion_duration_seconds",
			Help:    "Time from job creation to terminal status, by final status",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s..~1h07m
		},
		[]string{"status"},
	)

	// ArticlesIngestedTotal counts articles upserted during ingest-kind jobs.
	ArticlesIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articles_ingested_total",
			Help: "Total number of articles upserted by ingest-kind jobs",
		},
	)

	// FeedScrapeErrorsTotal counts feed fetch errors recorded in
	// FeedScrapingState, by feed ID.
	FeedScrapeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_scrape_errors_total",
			Help: "Total number of feed fetch errors recorded",
		},
		[]string{"feed_id"},
	)

	// CatalogSyncTotal counts catalog sync runs, by repository action
	// (cloned, pulled, up_to_date) and outcome (success, failure).
	CatalogSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_total",
			Help: "Total number of catalog sync runs",
		},
		[]string{"repository_action", "outcome"},
	)

	// CatalogSyncChangesTotal tracks companies/feeds created or updated by
	// the most recent successful catalog sync, by change kind.
	CatalogSyncChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_changes_total",
			Help: "Total number of catalog entities created or updated by sync",
		},
		[]string{"entity", "change"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
