package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrJobAlreadyRunning indicates the named job lock is already held,
	// intra-process or cluster-wide.
	ErrJobAlreadyRunning = errors.New("job already running")

	// ErrRssJobQueuePublishError indicates a job's messages could not be
	// published to the bus after the Job row was committed. The job is
	// marked failed; this error is surfaced to the caller alongside that.
	ErrRssJobQueuePublishError = errors.New("failed to publish scrape job to queue")

	// ErrForbiddenStateTransition indicates an administrative mutation
	// (feed/company toggle) was rejected because the target state is not
	// reachable from the current one (e.g. enabling a feed whose company
	// is disabled).
	ErrForbiddenStateTransition = errors.New("forbidden state transition")

	// ErrCatalogSyncFailed indicates the git-backed catalog sync failed.
	ErrCatalogSyncFailed = errors.New("catalog sync failed")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
