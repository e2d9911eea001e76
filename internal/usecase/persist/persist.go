// Package persist implements the Result Persistence Service's single
// message-handling transaction, grounded on result_persistence_service.py.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"manifeed/internal/domain/entity"
	"manifeed/internal/infra/notifier"
	"manifeed/internal/observability/metrics"
	"manifeed/internal/observability/slo"
	"manifeed/internal/repository"
)

type Service struct {
	results  repository.JobResultRepository
	states   repository.FeedScrapingStateRepository
	articles repository.ArticleRepository
	jobs     repository.JobRepository
	notifier notifier.Notifier

	// terminalJobs/terminalErrors feed the job success/error rate SLO
	// gauges: a running count since process start, not a sliding window.
	terminalJobs   atomic.Int64
	terminalErrors atomic.Int64
}

func NewService(
	results repository.JobResultRepository,
	states repository.FeedScrapingStateRepository,
	articles repository.ArticleRepository,
	jobs repository.JobRepository,
) *Service {
	return &Service{results: results, states: states, articles: articles, jobs: jobs, notifier: notifier.NewNoOpNotifier()}
}

// WithNotifier replaces the default no-op job-completion notifier.
func (s *Service) WithNotifier(n notifier.Notifier) *Service {
	s.notifier = n
	return s
}

// HandleResult applies one worker result: idempotent JobResult insert,
// FeedScrapingState upsert, ingest-only article/link upserts, and a job
// status refresh. Returns false without side effects beyond the insert
// attempt if this (job_id, feed_id) pair was already recorded — a
// redelivered bus message after a crash is a no-op.
func (s *Service) HandleResult(ctx context.Context, result repository.WorkerResult, queueKind string) (bool, error) {
	jobResult := &entity.JobResult{
		JobID:           result.JobID,
		FeedID:          result.FeedID,
		Status:          entity.ResultStatus(result.Status),
		QueueKind:       entity.QueueKind(queueKind),
		ErrorMessage:    result.ErrorMessage,
		Fetchprotection: result.Fetchprotection,
		NewETag:         result.NewETag,
		ProcessedAt:     time.Now().UTC(),
	}
	if result.NewLastUpdate != nil {
		if t, err := time.Parse(time.RFC3339, *result.NewLastUpdate); err == nil {
			utc := t.UTC()
			jobResult.NewLastUpdate = &utc
		}
	}

	isNew, err := s.results.InsertIfNew(ctx, jobResult)
	if err != nil {
		return false, fmt.Errorf("HandleResult: insert job result: %w", err)
	}
	if !isNew {
		return false, nil
	}

	metrics.RecordJobResult(queueKind, string(jobResult.Status))

	state := &entity.FeedScrapingState{
		FeedID:          result.FeedID,
		Fetchprotection: result.Fetchprotection,
		ETag:            result.NewETag,
		LastUpdate:      jobResult.NewLastUpdate,
		ErrorMsg:        result.ErrorMessage,
	}
	isError := jobResult.Status == entity.ResultStatusError
	if isError {
		metrics.RecordFeedScrapeError(result.FeedID)
	}
	if err := s.states.Upsert(ctx, state, isError); err != nil {
		return false, fmt.Errorf("HandleResult: upsert scraping state: %w", err)
	}

	if queueKind == string(entity.QueueKindIngest) && jobResult.Status == entity.ResultStatusSuccess {
		for _, source := range result.Sources {
			article := sourceToArticle(source)
			if _, err := s.articles.UpsertForFeed(ctx, result.FeedID, article); err != nil {
				return false, fmt.Errorf("HandleResult: upsert article: %w", err)
			}
		}
		metrics.RecordArticlesIngested(len(result.Sources))
	}

	if err := s.refreshJobStatus(ctx, result.JobID); err != nil {
		return false, fmt.Errorf("HandleResult: refresh job status: %w", err)
	}

	return true, nil
}

func (s *Service) refreshJobStatus(ctx context.Context, jobID string) error {
	status, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return err
	}
	if status == nil {
		return nil
	}
	processed := status.Success + status.NotMod + status.Error
	derived := entity.DeriveJobStatus(status.Job.FeedCount, processed, status.Error)
	if _, err := s.jobs.UpdateStatus(ctx, jobID, derived); err != nil {
		return err
	}

	if isTerminalStatus(derived) && !isTerminalStatus(status.Job.Status) {
		job := *status.Job
		job.Status = derived
		job.UpdatedAt = time.Now().UTC()

		metrics.RecordJobCompletion(string(derived), job.UpdatedAt.Sub(job.RequestedAt))
		s.recordTerminalOutcome(derived)

		go s.notifyJobComplete(&job)
	}
	return nil
}

// recordTerminalOutcome updates the rolling job success/error rate SLO
// gauges with a terminal job's outcome.
func (s *Service) recordTerminalOutcome(status entity.JobStatus) {
	total := s.terminalJobs.Add(1)
	errored := s.terminalErrors.Load()
	if status == entity.JobStatusFailed || status == entity.JobStatusCompletedWithError {
		errored = s.terminalErrors.Add(1)
	}
	slo.UpdateJobSuccessRate(float64(total-errored) / float64(total))
	slo.UpdateJobErrorRate(float64(errored) / float64(total))
}

// isTerminalStatus reports whether a Job.Status will not change again.
func isTerminalStatus(status entity.JobStatus) bool {
	switch status {
	case entity.JobStatusCompleted, entity.JobStatusCompletedWithError, entity.JobStatusFailed:
		return true
	default:
		return false
	}
}

// notifyJobComplete dispatches the job-completion notification in the
// background; HandleResult's caller already acks the bus message and must
// not be delayed by a webhook round trip.
func (s *Service) notifyJobComplete(job *entity.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.notifier.NotifyJobComplete(ctx, job); err != nil {
		slog.Warn("job completion notification failed",
			slog.String("job_id", job.JobID),
			slog.String("status", string(job.Status)),
			slog.Any("error", err))
	}
}

func sourceToArticle(source repository.FeedSource) *entity.Article {
	var publishedAt *time.Time
	if source.PublishedAt != nil {
		if t, err := time.Parse(time.RFC3339, *source.PublishedAt); err == nil {
			utc := t.UTC()
			publishedAt = &utc
		}
	}
	return &entity.Article{
		Title:       source.Title,
		URL:         source.URL,
		Summary:     source.Summary,
		Author:      source.Author,
		ImageURL:    source.ImageURL,
		PublishedAt: entity.NormalizePublishedAt(publishedAt),
	}
}
