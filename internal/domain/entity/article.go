// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects — catalog (Company, Feed, Tag), crawl
// state (FeedScrapingState), content (Article, ArticleFeedLink), and job tracking
// (Job, JobFeed, JobResult) — along with their validation rules and domain errors.
package entity

import "time"

// EpochSentinel stands in for an unknown article publication date so that
// the (URL, PublishedAt) uniqueness key stays total.
var EpochSentinel = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Article represents a single ingested news item, unique on (URL, PublishedAt).
// PublishedAt is the partition key; when the source feed carries no usable
// date, EpochSentinel is substituted rather than leaving it null.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Summary     string
	Author      string
	ImageURL    string
	PublishedAt time.Time
	CreatedAt   time.Time
}

// NormalizePublishedAt returns t if non-nil and non-zero, else EpochSentinel,
// coercing any naive (non-UTC) value to UTC.
func NormalizePublishedAt(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return EpochSentinel
	}
	return t.UTC()
}

// ArticleFeedLink associates an Article with the Feed it was discovered
// through. PublishedAt must match the linked article's PublishedAt — it is
// carried on the link row so the link shares the article's partition key
// rather than requiring a join to find it.
type ArticleFeedLink struct {
	SourceID    int64
	FeedID      int64
	PublishedAt time.Time
}
