package repository

import (
	"context"
	"time"

	"manifeed/internal/domain/entity"
)

// FeedRepository manages the catalog of registered RSS/Atom feeds.
type FeedRepository interface {
	Get(ctx context.Context, id int64) (*entity.Feed, error)
	List(ctx context.Context) ([]*entity.Feed, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*entity.Feed, error)
	ListEnabled(ctx context.Context) ([]*entity.Feed, error)
	Create(ctx context.Context, feed *entity.Feed) error
	Update(ctx context.Context, feed *entity.Feed) error
	Delete(ctx context.Context, id int64) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
}

// CompanyRepository manages publisher companies.
type CompanyRepository interface {
	Get(ctx context.Context, id int64) (*entity.Company, error)
	List(ctx context.Context) ([]*entity.Company, error)
	Create(ctx context.Context, company *entity.Company) error
	Update(ctx context.Context, company *entity.Company) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
}

// FeedScrapePayload is the joined view the Job Orchestrator needs to build a
// FeedPayload message: the feed itself, its owning company (nil if none),
// its current scraping state (nil if never scraped), and the most recent
// published_at already on record for the feed (nil if no articles yet).
type FeedScrapePayload struct {
	Feed                     *entity.Feed
	Company                  *entity.Company
	ScrapingState            *entity.FeedScrapingState
	LastDBArticlePublishedAt *time.Time
}

// ScrapePayloadRepository returns the joined crawl inputs for the given feed
// ids (or all feeds when ids is empty), optionally restricted to enabled
// feeds. Grounded on list_rss_feed_scrape_payloads.
type ScrapePayloadRepository interface {
	ListScrapePayloads(ctx context.Context, feedIDs []int64, enabledOnly bool) ([]FeedScrapePayload, error)
}
