package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

type JobRepo struct{ db *sql.DB }

func NewJobRepo(db *sql.DB) repository.JobRepository {
	return &JobRepo{db: db}
}

func (repo *JobRepo) CreateWithFeeds(ctx context.Context, job *entity.Job, feeds []entity.JobFeed) error {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateWithFeeds: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertJob = `
INSERT INTO jobs (job_id, ingest, requested_by, requested_at, feed_count, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())`
	if _, err := tx.ExecContext(ctx, insertJob,
		job.JobID, job.Ingest, job.RequestedBy, job.RequestedAt, job.FeedCount, job.Status,
	); err != nil {
		return fmt.Errorf("CreateWithFeeds: insert job: %w", err)
	}

	const insertFeed = `
INSERT INTO job_feeds (job_id, feed_id, feed_url, last_db_article_published_at)
VALUES ($1, $2, $3, $4)`
	for _, f := range feeds {
		if _, err := tx.ExecContext(ctx, insertFeed, f.JobID, f.FeedID, f.FeedURL, f.LastDBArticlePublishedAt); err != nil {
			return fmt.Errorf("CreateWithFeeds: insert job_feed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateWithFeeds: commit: %w", err)
	}
	return nil
}

func (repo *JobRepo) UpdateStatus(ctx context.Context, jobID string, status entity.JobStatus) (bool, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, updated_at = now() WHERE job_id = $2`, status, jobID)
	if err != nil {
		return false, fmt.Errorf("UpdateStatus: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (repo *JobRepo) GetStatus(ctx context.Context, jobID string) (*repository.JobStatusRead, error) {
	const jobQuery = `
SELECT job_id, ingest, requested_by, requested_at, feed_count, status, updated_at
FROM jobs
WHERE job_id = $1
LIMIT 1`
	var job entity.Job
	err := repo.db.QueryRowContext(ctx, jobQuery, jobID).
		Scan(&job.JobID, &job.Ingest, &job.RequestedBy, &job.RequestedAt, &job.FeedCount, &job.Status, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetStatus: %w", err)
	}

	const countsQuery = `
SELECT
    COUNT(*) FILTER (WHERE status = $2),
    COUNT(*) FILTER (WHERE status = $3),
    COUNT(*) FILTER (WHERE status = $4)
FROM job_results
WHERE job_id = $1`
	var success, notMod, errorCount int
	if err := repo.db.QueryRowContext(ctx, countsQuery, jobID,
		entity.ResultStatusSuccess, entity.ResultStatusNotModified, entity.ResultStatusError,
	).Scan(&success, &notMod, &errorCount); err != nil {
		return nil, fmt.Errorf("GetStatus: counts: %w", err)
	}

	return &repository.JobStatusRead{Job: &job, Success: success, NotMod: notMod, Error: errorCount}, nil
}

func (repo *JobRepo) ListFeeds(ctx context.Context, jobID string) ([]repository.JobFeedRead, error) {
	const query = `
SELECT jf.feed_id, COALESCE(jr.status, $2)
FROM job_feeds jf
LEFT JOIN job_results jr ON jr.job_id = jf.job_id AND jr.feed_id = jf.feed_id
WHERE jf.job_id = $1
ORDER BY jf.feed_id ASC`
	rows, err := repo.db.QueryContext(ctx, query, jobID, entity.ResultStatusPending)
	if err != nil {
		return nil, fmt.Errorf("ListFeeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []repository.JobFeedRead
	for rows.Next() {
		var f repository.JobFeedRead
		if err := rows.Scan(&f.FeedID, &f.Status); err != nil {
			return nil, fmt.Errorf("ListFeeds: Scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type JobResultRepo struct{ db *sql.DB }

func NewJobResultRepo(db *sql.DB) repository.JobResultRepository {
	return &JobResultRepo{db: db}
}

// InsertIfNew is the idempotency gate: a row is inserted only when a parent
// Job exists and no result for (job_id, feed_id) has been recorded yet,
// so a redelivered bus message after a crash is a no-op the second time.
func (repo *JobResultRepo) InsertIfNew(ctx context.Context, result *entity.JobResult) (bool, error) {
	const query = `
INSERT INTO job_results (job_id, feed_id, status, queue_kind, error_message, fetchprotection, new_etag, new_last_update, processed_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, now()
WHERE EXISTS (SELECT 1 FROM jobs WHERE job_id = $1)
ON CONFLICT (job_id, feed_id) DO NOTHING`
	res, err := repo.db.ExecContext(ctx, query,
		result.JobID, result.FeedID, result.Status, result.QueueKind, result.ErrorMessage,
		result.Fetchprotection, result.NewETag, result.NewLastUpdate,
	)
	if err != nil {
		return false, fmt.Errorf("InsertIfNew: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
