// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Pipeline metrics (jobs enqueued, job results, catalog sync, feed errors)
//   - Database query metrics
//   - Application performance metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "manifeed/internal/observability/metrics"
//
//	func handleResult(jobID string) {
//	    start := time.Now()
//	    // ... apply one worker result ...
//
//	    metrics.RecordJobResult("ingest", "success")
//	    metrics.RecordOperationDuration("handle_result", time.Since(start))
//	}
package metrics
