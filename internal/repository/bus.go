package repository

import "context"

// FeedPayload is one feed's fetch instructions, published by the Job
// Orchestrator on the requests stream. Field constraints mirror the wire
// schema in the external-interfaces contract.
type FeedPayload struct {
	FeedID                   int64   `json:"feed_id"`
	FeedURL                  string  `json:"feed_url"`
	CompanyID                *int64  `json:"company_id,omitempty"`
	HostHeader               string  `json:"host_header,omitempty"`
	Fetchprotection          int     `json:"fetchprotection"`
	ETag                     string  `json:"etag,omitempty"`
	LastUpdate               *string `json:"last_update,omitempty"`
	LastDBArticlePublishedAt *string `json:"last_db_article_published_at,omitempty"`
}

// ScrapeJobRequest is the message body published on the requests stream.
type ScrapeJobRequest struct {
	JobID       string        `json:"job_id"`
	RequestedAt string        `json:"requested_at"`
	Ingest      bool          `json:"ingest"`
	RequestedBy string        `json:"requested_by"`
	Feeds       []FeedPayload `json:"feeds"`
}

// FeedSource is one normalized article a worker extracted from a feed.
type FeedSource struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Summary     string  `json:"summary,omitempty"`
	Author      string  `json:"author,omitempty"`
	PublishedAt *string `json:"published_at,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// WorkerResult is the message body a Scrape Worker publishes to one of the
// three result streams after fetching a single feed.
type WorkerResult struct {
	JobID           string       `json:"job_id"`
	Ingest          bool         `json:"ingest"`
	FeedID          int64        `json:"feed_id"`
	FeedURL         string       `json:"feed_url"`
	Status          string       `json:"status"` // success | not_modified | error
	ErrorMessage    string       `json:"error_message,omitempty"`
	NewETag         string       `json:"new_etag,omitempty"`
	NewLastUpdate   *string      `json:"new_last_update,omitempty"`
	Fetchprotection int          `json:"fetchprotection"`
	Sources         []FeedSource `json:"sources,omitempty"`
}

// JobPublisher publishes batches of scrape job requests. Implemented by
// internal/infra/adapter/bus/redisbus and used by the Job Orchestrator.
type JobPublisher interface {
	PublishJobBatch(ctx context.Context, batch []FeedPayload, req ScrapeJobRequest) error
}

// JobConsumer is the Scrape Worker's side of the requests stream: ensure the
// consumer group, read pending messages, and ack by message id.
type JobConsumer interface {
	EnsureGroup(ctx context.Context) error
	ReadJobs(ctx context.Context, count int, block int) ([]ConsumedMessage, error)
	Ack(ctx context.Context, messageID string) error
}

// ConsumedMessage is one bus message read off any stream, carrying enough
// to both process and later acknowledge it.
type ConsumedMessage struct {
	Stream    string
	MessageID string
	Payload   []byte
}

// ResultPublisher is the Scrape Worker's side of the three result streams.
type ResultPublisher interface {
	PublishResult(ctx context.Context, queueKind string, result WorkerResult) error
}

// ResultConsumer is the Result Persistence Service's side: a single
// consumer group reading across all three result streams.
type ResultConsumer interface {
	EnsureGroups(ctx context.Context) error
	ReadResults(ctx context.Context, count int, block int) ([]ConsumedMessage, error)
	Ack(ctx context.Context, stream, messageID string) error
}
