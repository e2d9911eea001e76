// Package job implements the Job Orchestrator's enqueue and status
// operations, grounded on the backend's rss_scrape_job_service.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"manifeed/internal/domain/entity"
	"manifeed/internal/observability/metrics"
	"manifeed/internal/repository"
)

const DefaultQueueBatchSize = 50

const (
	RequestedByFeedCheck     = "rss_feeds_check_endpoint"
	RequestedBySourcesIngest = "sources_ingest_endpoint"
)

// Clock is an injectable clock for deterministic tests; production wires
// time.Now directly.
type Clock func() time.Time

type Service struct {
	payloads       repository.ScrapePayloadRepository
	jobs           repository.JobRepository
	publisher      repository.JobPublisher
	queueBatchSize int
	now            Clock
}

func NewService(payloads repository.ScrapePayloadRepository, jobs repository.JobRepository, publisher repository.JobPublisher, queueBatchSize int) *Service {
	if queueBatchSize <= 0 {
		queueBatchSize = DefaultQueueBatchSize
	}
	return &Service{payloads: payloads, jobs: jobs, publisher: publisher, queueBatchSize: queueBatchSize, now: time.Now}
}

// EnqueueFeedCheck creates a non-ingesting job: workers fetch and report
// freshness for the given feeds (or all feeds, if feedIDs is empty) without
// persisting articles.
func (s *Service) EnqueueFeedCheck(ctx context.Context, feedIDs []int64) (*entity.Job, error) {
	return s.enqueue(ctx, false, RequestedByFeedCheck, feedIDs, false)
}

// EnqueueSourcesIngest creates an ingesting job restricted to enabled feeds.
func (s *Service) EnqueueSourcesIngest(ctx context.Context, feedIDs []int64) (*entity.Job, error) {
	return s.enqueue(ctx, true, RequestedBySourcesIngest, feedIDs, true)
}

func (s *Service) GetStatus(ctx context.Context, jobID string) (*repository.JobStatusRead, error) {
	status, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("GetStatus: %w", err)
	}
	if status == nil {
		return nil, entity.ErrNotFound
	}
	return status, nil
}

func (s *Service) ListFeeds(ctx context.Context, jobID string) ([]repository.JobFeedRead, error) {
	status, err := s.jobs.GetStatus(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("ListFeeds: %w", err)
	}
	if status == nil {
		return nil, entity.ErrNotFound
	}
	feeds, err := s.jobs.ListFeeds(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("ListFeeds: %w", err)
	}
	return feeds, nil
}

func (s *Service) enqueue(ctx context.Context, ingest bool, requestedBy string, feedIDs []int64, enabledOnly bool) (*entity.Job, error) {
	payloads, err := s.payloads.ListScrapePayloads(ctx, feedIDs, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("enqueue: list payloads: %w", err)
	}

	requestedAt := s.now().UTC()
	jobID := uuid.NewString()
	status := entity.DeriveJobStatus(len(payloads), 0, 0)

	job := &entity.Job{
		JobID:       jobID,
		Ingest:      ingest,
		RequestedBy: requestedBy,
		RequestedAt: requestedAt,
		FeedCount:   len(payloads),
		Status:      status,
		UpdatedAt:   requestedAt,
	}

	jobFeeds := make([]entity.JobFeed, 0, len(payloads))
	feedMessages := make([]repository.FeedPayload, 0, len(payloads))
	for _, p := range payloads {
		jobFeeds = append(jobFeeds, entity.JobFeed{
			JobID:                    jobID,
			FeedID:                   p.Feed.ID,
			FeedURL:                  p.Feed.URL,
			LastDBArticlePublishedAt: p.LastDBArticlePublishedAt,
		})
		feedMessages = append(feedMessages, buildFeedPayload(p))
	}

	if err := s.jobs.CreateWithFeeds(ctx, job, jobFeeds); err != nil {
		return nil, fmt.Errorf("enqueue: create job: %w", err)
	}

	kind := "check"
	if ingest {
		kind = "ingest"
	}
	metrics.RecordJobEnqueued(kind, requestedBy, len(payloads))

	if len(feedMessages) == 0 {
		return job, nil
	}

	mixed := mixFeedsByCompany(feedMessages)
	req := repository.ScrapeJobRequest{
		JobID:       jobID,
		RequestedAt: requestedAt.Format(time.RFC3339),
		Ingest:      ingest,
		RequestedBy: requestedBy,
	}
	for _, batch := range iterBatches(mixed, s.queueBatchSize) {
		if err := s.publisher.PublishJobBatch(ctx, batch, req); err != nil {
			s.markFailedAfterPublishError(ctx, jobID)
			return nil, fmt.Errorf("enqueue: %w: %w", entity.ErrRssJobQueuePublishError, err)
		}
	}

	return job, nil
}

func (s *Service) markFailedAfterPublishError(ctx context.Context, jobID string) {
	_, _ = s.jobs.UpdateStatus(ctx, jobID, entity.JobStatusFailed)
}

func buildFeedPayload(p repository.FeedScrapePayload) repository.FeedPayload {
	payload := repository.FeedPayload{
		FeedID:          p.Feed.ID,
		FeedURL:         p.Feed.URL,
		CompanyID:       p.Feed.CompanyID,
		Fetchprotection: entity.ResolveFetchprotection(p.Feed, p.Company),
	}
	if p.Company != nil && p.Company.Host != "" {
		payload.HostHeader = p.Company.Host
	}
	if p.ScrapingState != nil {
		payload.ETag = p.ScrapingState.ETag
		if p.ScrapingState.LastUpdate != nil {
			formatted := p.ScrapingState.LastUpdate.UTC().Format(time.RFC3339)
			payload.LastUpdate = &formatted
		}
	}
	if p.LastDBArticlePublishedAt != nil {
		formatted := p.LastDBArticlePublishedAt.UTC().Format(time.RFC3339)
		payload.LastDBArticlePublishedAt = &formatted
	}
	return payload
}

func iterBatches(feeds []repository.FeedPayload, batchSize int) [][]repository.FeedPayload {
	var batches [][]repository.FeedPayload
	for len(feeds) > 0 {
		n := batchSize
		if n > len(feeds) {
			n = len(feeds)
		}
		batches = append(batches, feeds[:n])
		feeds = feeds[n:]
	}
	return batches
}

// mixFeedsByCompany interleaves feeds round-robin by owning company (or by
// feed id, for company-less feeds) so a batch never becomes a run of every
// feed from one company — companies with many feeds don't starve others'
// early results.
func mixFeedsByCompany(feeds []repository.FeedPayload) []repository.FeedPayload {
	if len(feeds) <= 1 {
		return feeds
	}

	byCompany := map[string][]repository.FeedPayload{}
	var order []string
	for _, f := range feeds {
		key := companyKey(f)
		if _, ok := byCompany[key]; !ok {
			order = append(order, key)
		}
		byCompany[key] = append(byCompany[key], f)
	}

	mixed := make([]repository.FeedPayload, 0, len(feeds))
	for pending := true; pending; {
		pending = false
		for _, key := range order {
			queue := byCompany[key]
			if len(queue) == 0 {
				continue
			}
			mixed = append(mixed, queue[0])
			byCompany[key] = queue[1:]
			pending = true
		}
	}
	return mixed
}

func companyKey(f repository.FeedPayload) string {
	if f.CompanyID != nil && *f.CompanyID > 0 {
		return fmt.Sprintf("company:%d", *f.CompanyID)
	}
	return fmt.Sprintf("feed:%d", f.FeedID)
}
