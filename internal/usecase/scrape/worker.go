package scrape

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"manifeed/internal/repository"
)

const (
	// CompanyMaxRequestsPerSecond is the steady-state cap on concurrent
	// requests the worker issues against a single company's feeds,
	// matching original_source's CompanyRateLimiter(max_requests_per_second=4).
	CompanyMaxRequestsPerSecond = 4
)

// Worker drives one consumed ScrapeJobRequest through the fetch pipeline,
// grouping feeds by owning company the way _process_job_message ->
// _process_company_feed_pool does, and publishing one WorkerResult per feed.
type Worker struct {
	fetcher   *Fetcher
	publisher repository.ResultPublisher

	companyMaxRPS int
	limiters      sync.Map // company key -> *rate.Limiter
}

func NewWorker(fetcher *Fetcher, publisher repository.ResultPublisher, companyMaxRPS int) *Worker {
	if companyMaxRPS <= 0 {
		companyMaxRPS = CompanyMaxRequestsPerSecond
	}
	return &Worker{fetcher: fetcher, publisher: publisher, companyMaxRPS: companyMaxRPS}
}

// ProcessJob fetches every feed in the request, company group by company
// group, and publishes each feed's result to the appropriate stream. A
// single feed's fetch or publish error does not abort sibling feeds: it is
// returned at the end, joined with any others, so the caller can still ack
// the job message (a feed-level error already became an error_feeds_parsing
// result, which is the durable record of the failure).
func (w *Worker) ProcessJob(ctx context.Context, req repository.ScrapeJobRequest) error {
	feedsByCompany := groupFeedsByCompany(req.Feeds)

	eg, egCtx := errgroup.WithContext(ctx)
	for companyKey, feeds := range feedsByCompany {
		companyKey, feeds := companyKey, feeds
		eg.Go(func() error {
			return w.processCompanyFeeds(egCtx, req, companyKey, feeds)
		})
	}
	return eg.Wait()
}

func (w *Worker) processCompanyFeeds(ctx context.Context, req repository.ScrapeJobRequest, companyKey string, feeds []repository.FeedPayload) error {
	limiter := w.limiterFor(companyKey)

	eg, egCtx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		feed := feed
		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return fmt.Errorf("rate limit wait for %s: %w", companyKey, err)
			}
			return w.processFeed(egCtx, req, feed)
		})
	}
	return eg.Wait()
}

func (w *Worker) processFeed(ctx context.Context, req repository.ScrapeJobRequest, feed repository.FeedPayload) error {
	result := w.fetcher.FetchFeed(ctx, feed)
	result.JobID = req.JobID
	result.Ingest = req.Ingest

	queueKind := "check"
	switch {
	case result.Status == "error":
		queueKind = "error"
	case req.Ingest:
		queueKind = "ingest"
	}

	if err := w.publisher.PublishResult(ctx, queueKind, result); err != nil {
		return fmt.Errorf("publish result for feed %d: %w", feed.FeedID, err)
	}
	return nil
}

func (w *Worker) limiterFor(companyKey string) *rate.Limiter {
	if existing, ok := w.limiters.Load(companyKey); ok {
		return existing.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Limit(1), w.companyMaxRPS)
	actual, _ := w.limiters.LoadOrStore(companyKey, limiter)
	return actual.(*rate.Limiter)
}

func groupFeedsByCompany(feeds []repository.FeedPayload) map[string][]repository.FeedPayload {
	grouped := map[string][]repository.FeedPayload{}
	for _, f := range feeds {
		key := feedCompanyKey(f)
		grouped[key] = append(grouped[key], f)
	}
	return grouped
}

func feedCompanyKey(f repository.FeedPayload) string {
	if f.CompanyID != nil && *f.CompanyID > 0 {
		return fmt.Sprintf("company:%d", *f.CompanyID)
	}
	return fmt.Sprintf("feed:%d", f.FeedID)
}
