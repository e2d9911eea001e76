// Package article provides HTTP handlers for the paginated, read-only
// article endpoints under /sources.
package article

import "time"

// DTO represents the JSON structure for article data transfer.
type DTO struct {
	ID          int64     `json:"id" example:"1"`
	FeedID      int64     `json:"feed_id" example:"1"`
	Title       string    `json:"title" example:"Go 1.23 released"`
	URL         string    `json:"url" example:"https://example.com/article/1"`
	Summary     string    `json:"summary" example:"Go 1.23 ships with..."`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at" example:"2026-01-15T10:00:00Z"`
	CreatedAt   time.Time `json:"created_at" example:"2026-01-15T12:00:00Z"`
}
