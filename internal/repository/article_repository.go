package repository

import (
	"context"

	"manifeed/internal/domain/entity"
)

// ArticleWithFeed pairs an article with the feed it was linked through, for
// list endpoints that display the originating feed alongside the article.
type ArticleWithFeed struct {
	Article *entity.Article
	FeedID  int64
}

// ArticleSearchFilters contains optional filters for paginated article reads.
type ArticleSearchFilters struct {
	FeedID    *int64 // Optional: restrict to one feed
	CompanyID *int64 // Optional: restrict to one company's feeds
}

// ArticleRepository manages ingested articles and their feed links.
type ArticleRepository interface {
	Get(ctx context.Context, id int64) (*entity.Article, error)
	ListPaginated(ctx context.Context, filters ArticleSearchFilters, offset, limit int) ([]ArticleWithFeed, error)
	CountArticles(ctx context.Context, filters ArticleSearchFilters) (int64, error)

	// UpsertForFeed inserts or updates an article discovered through feedID,
	// keyed on (URL, PublishedAt). On conflict, Title is overwritten and
	// Summary/Author/ImageURL are COALESCEd (new value wins only if
	// non-empty). It also upserts the (source, feed, published_at) link,
	// ON CONFLICT DO NOTHING. Returns the article's id.
	UpsertForFeed(ctx context.Context, feedID int64, article *entity.Article) (int64, error)
}

// FeedScrapingStateRepository manages per-feed crawl state.
type FeedScrapingStateRepository interface {
	Get(ctx context.Context, feedID int64) (*entity.FeedScrapingState, error)

	// Upsert applies the §4.3 FeedScrapingState table: Fetchprotection is
	// always overwritten; LastUpdate/ETag are COALESCEd (new over existing);
	// on isError, ErrorNbr is incremented and ErrorMsg overwritten, else
	// ErrorNbr is unchanged and ErrorMsg is cleared.
	Upsert(ctx context.Context, state *entity.FeedScrapingState, isError bool) error
}
