package entity

import "time"

// FeedScrapingState is the 1:1 per-Feed crawl state: cache validators and
// the running error counter/message. It is lazily created on first result
// and never deleted explicitly.
type FeedScrapingState struct {
	FeedID          int64
	Fetchprotection int
	LastUpdate      *time.Time // sticky: new value COALESCEs over existing
	ETag            string     // ≤255 chars, sticky like LastUpdate
	ErrorNbr        int        // ≥0
	ErrorMsg        string
}
