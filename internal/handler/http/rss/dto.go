// Package rss provides HTTP handlers for the feed/company catalog control
// endpoints under /rss.
package rss

// FeedDTO is the JSON representation of a catalog feed entry.
type FeedDTO struct {
	ID              int64    `json:"id" example:"1"`
	URL             string   `json:"url" example:"https://example.com/feed.xml"`
	Section         string   `json:"section,omitempty"`
	Enabled         bool     `json:"enabled" example:"true"`
	TrustScore      float64  `json:"trust_score" example:"0.8"`
	Tags            []string `json:"tags,omitempty"`
	Fetchprotection *int     `json:"fetchprotection,omitempty"`
}

// CompanyDTO is the JSON representation of a catalog company entry.
type CompanyDTO struct {
	ID              int64     `json:"id" example:"1"`
	Name            string    `json:"name" example:"Example Co"`
	Host            string    `json:"host" example:"example.com"`
	IconURL         string    `json:"icon_url,omitempty"`
	Country         string    `json:"country,omitempty"`
	Language        string    `json:"language,omitempty"`
	Fetchprotection int       `json:"fetchprotection" example:"1"`
	Enabled         bool      `json:"enabled" example:"true"`
	Feeds           []FeedDTO `json:"feeds"`
}

// enabledRequest is the request body for feed/company enabled toggles.
type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

// syncResponse mirrors catalog.SyncResult for the sync endpoint's reply.
type syncResponse struct {
	RepositoryAction string `json:"repository_action"`
	ProcessedFiles   int    `json:"processed_files"`
	ProcessedFeeds   int    `json:"processed_feeds"`
	CreatedCompanies int    `json:"created_companies"`
	CreatedFeeds     int    `json:"created_feeds"`
	UpdatedFeeds     int    `json:"updated_feeds"`
}

// feedCheckResponse reports the job created by a freshness check request.
type feedCheckResponse struct {
	JobID     string `json:"job_id"`
	FeedCount int    `json:"feed_count"`
	Status    string `json:"status"`
}
