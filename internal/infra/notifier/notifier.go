// Package notifier provides abstraction for sending notifications about job
// completions. It defines the Notifier interface which allows different
// notification mechanisms (Discord, Slack, etc.) to be used interchangeably
// through dependency injection.
//
// The package includes implementations for Discord and Slack webhooks and a
// no-op notifier for when notifications are disabled.
package notifier

import (
	"context"

	"manifeed/internal/domain/entity"
)

// Notifier is an interface for sending job-completion notifications.
// Implementations should handle rate limiting, retries, and error logging internally.
type Notifier interface {
	// NotifyJobComplete sends a notification that a Job reached a terminal
	// status (completed, completed_with_errors, or failed).
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - job: The job that reached a terminal status (must not be nil)
	//
	// Returns:
	//   - error: Non-nil if the notification failed after all retry attempts
	//
	// Implementations should:
	//   - Generate a unique request ID for tracing
	//   - Apply rate limiting to prevent API abuse
	//   - Retry transient failures with exponential backoff
	//   - Log all attempts with the request ID for debugging
	//   - Respect context cancellation
	NotifyJobComplete(ctx context.Context, job *entity.Job) error
}
