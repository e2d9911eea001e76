package worker

import (
	"manifeed/internal/pkg/config"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig holds the configuration for a Scrape Worker process.
// It controls how aggressively the worker reads from the job queue, how
// much per-company concurrency it allows, and how early it refreshes its
// auth token before expiry.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the worker can
// start safely even with invalid or missing configuration.
type WorkerConfig struct {
	// QueueReadCount is how many job stream entries to claim per read.
	// Range: 1-500
	// Default: 10
	QueueReadCount int

	// CompanyMaxRequestsPerSecond caps outbound fetch rate per company.
	// Range: 1-50
	// Default: 4
	CompanyMaxRequestsPerSecond int

	// FeedFetchParallelism bounds concurrent in-flight feed fetches
	// across all companies within a single job.
	// Range: 1-200
	// Default: 32
	FeedFetchParallelism int

	// TokenRefreshBuffer is how long before expiry the worker renews its
	// auth token.
	// Must be positive (> 0)
	// Default: 60s
	TokenRefreshBuffer time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		QueueReadCount:              10,
		CompanyMaxRequestsPerSecond: 4,
		FeedFetchParallelism:        32,
		TokenRefreshBuffer:          60 * time.Second,
		HealthPort:                  9091,
	}
}

// Validate checks if the configuration values are valid. If multiple
// fields are invalid, all errors are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateIntRange(c.QueueReadCount, 1, 500); err != nil {
		errors = append(errors, fmt.Errorf("queue read count: %w", err))
	}
	if err := config.ValidateIntRange(c.CompanyMaxRequestsPerSecond, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("company max requests per second: %w", err))
	}
	if err := config.ValidateIntRange(c.FeedFetchParallelism, 1, 200); err != nil {
		errors = append(errors, fmt.Errorf("feed fetch parallelism: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.TokenRefreshBuffer); err != nil {
		errors = append(errors, fmt.Errorf("token refresh buffer: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - WORKER_QUEUE_READ_COUNT: Integer 1-500 (default: 10)
//   - WORKER_COMPANY_MAX_REQUESTS_PER_SECOND: Integer 1-50 (default: 4)
//   - WORKER_FEED_FETCH_PARALLELISM: Integer 1-200 (default: 32)
//   - WORKER_TOKEN_REFRESH_BUFFER: Duration string, e.g. "60s" (default: 60s)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvInt("WORKER_QUEUE_READ_COUNT", cfg.QueueReadCount, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})
	cfg.QueueReadCount = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("queue_read_count")
		metrics.RecordFallback("queue_read_count", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "QueueReadCount"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_COMPANY_MAX_REQUESTS_PER_SECOND", cfg.CompanyMaxRequestsPerSecond, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.CompanyMaxRequestsPerSecond = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("company_max_requests_per_second")
		metrics.RecordFallback("company_max_requests_per_second", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CompanyMaxRequestsPerSecond"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_FEED_FETCH_PARALLELISM", cfg.FeedFetchParallelism, func(v int) error {
		return config.ValidateIntRange(v, 1, 200)
	})
	cfg.FeedFetchParallelism = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("feed_fetch_parallelism")
		metrics.RecordFallback("feed_fetch_parallelism", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "FeedFetchParallelism"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvDuration("WORKER_TOKEN_REFRESH_BUFFER", cfg.TokenRefreshBuffer, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Second, 10*time.Minute)
	})
	cfg.TokenRefreshBuffer = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("token_refresh_buffer")
		metrics.RecordFallback("token_refresh_buffer", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "TokenRefreshBuffer"),
				slog.String("warning", warning))
		}
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
