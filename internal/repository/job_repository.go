package repository

import (
	"context"

	"manifeed/internal/domain/entity"
)

// JobFeedRead is the per-feed projection list_job_feeds returns: the
// snapshot inputs plus the latest known result status, defaulting to
// "pending" when no JobResult row exists for the pair yet.
type JobFeedRead struct {
	FeedID int64
	Status entity.ResultStatus
}

// JobStatusRead is the aggregate projection get_job_status returns.
type JobStatusRead struct {
	Job     *entity.Job
	Success int
	NotMod  int
	Error   int
}

// JobRepository owns Job and JobFeed rows. The orchestrator is the only
// writer; persistence only refreshes Job.Status via UpdateStatus.
type JobRepository interface {
	// CreateWithFeeds inserts a Job row and one JobFeed row per payload in a
	// single transaction. feedCount == 0 implies initial status "completed".
	CreateWithFeeds(ctx context.Context, job *entity.Job, feeds []entity.JobFeed) error

	// UpdateStatus is used both by the orchestrator's best-effort
	// mark-as-failed-after-publish-error path and by the persistence
	// service's status-refresh step. Returns false (no error) if the job
	// does not exist — orphan protection.
	UpdateStatus(ctx context.Context, jobID string, status entity.JobStatus) (bool, error)

	GetStatus(ctx context.Context, jobID string) (*JobStatusRead, error)
	ListFeeds(ctx context.Context, jobID string) ([]JobFeedRead, error)
}

// JobResultRepository owns JobResult rows — exclusively written by the
// persistence service.
type JobResultRepository interface {
	// InsertIfNew performs the idempotent guarded insert: it only inserts
	// when a Job with the given job_id exists, and only if no JobResult row
	// already exists for (job_id, feed_id). Returns true iff a row was
	// inserted.
	InsertIfNew(ctx context.Context, result *entity.JobResult) (bool, error)
}
