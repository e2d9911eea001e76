package entity

import "time"

// JobStatus is the lifecycle state of a Job. Status is monotonic except for
// the queued -> failed transition taken when publishing to the bus fails
// after the Job row has already been committed.
type JobStatus string

const (
	JobStatusQueued             JobStatus = "queued"
	JobStatusProcessing         JobStatus = "processing"
	JobStatusCompleted          JobStatus = "completed"
	JobStatusCompletedWithError JobStatus = "completed_with_errors"
	JobStatusFailed             JobStatus = "failed"
)

// Job is an orchestrator-initiated unit of work over a set of feeds, either
// a "check" (Ingest == false) or an "ingest" (Ingest == true).
type Job struct {
	JobID       string // 36-char UUID
	Ingest      bool
	RequestedBy string
	RequestedAt time.Time
	FeedCount   int
	Status      JobStatus
	UpdatedAt   time.Time
}

// JobFeed is a snapshot of one feed's fetch inputs taken at job creation
// time; it is never mutated after the job is created.
type JobFeed struct {
	JobID                    string
	FeedID                   int64
	FeedURL                  string
	LastDBArticlePublishedAt *time.Time
}

// ResultStatus is the outcome of a single (job, feed) fetch attempt.
type ResultStatus string

const (
	ResultStatusSuccess     ResultStatus = "success"
	ResultStatusNotModified ResultStatus = "not_modified"
	ResultStatusError       ResultStatus = "error"
	ResultStatusPending     ResultStatus = "pending" // default when no JobResult row exists yet
)

// QueueKind identifies which result stream a WorkerResult was published to.
type QueueKind string

const (
	QueueKindCheck  QueueKind = "check"
	QueueKindIngest QueueKind = "ingest"
	QueueKindError  QueueKind = "error"
)

// JobResult is the terminal record for one feed in one job. The
// (JobID, FeedID) pair is the idempotency key: a second insert for the same
// pair is a no-op (ON CONFLICT DO NOTHING at the repository layer).
type JobResult struct {
	JobID           string
	FeedID          int64
	Status          ResultStatus
	QueueKind       QueueKind
	ErrorMessage    string
	Fetchprotection int
	NewETag         string
	NewLastUpdate   *time.Time
	ProcessedAt     time.Time
}

// DeriveJobStatus computes the aggregate Job.status from the feed count and
// the counts of processed/error JobResult rows, per the persistence
// service's status-refresh rule:
//
//	feedCount == 0            -> completed
//	processed == 0             -> queued
//	processed < feedCount      -> processing
//	processed == feedCount && errors > 0 -> completed_with_errors
//	else                       -> completed
func DeriveJobStatus(feedCount, processed, errors int) JobStatus {
	switch {
	case feedCount == 0:
		return JobStatusCompleted
	case processed == 0:
		return JobStatusQueued
	case processed < feedCount:
		return JobStatusProcessing
	case errors > 0:
		return JobStatusCompletedWithError
	default:
		return JobStatusCompleted
	}
}
