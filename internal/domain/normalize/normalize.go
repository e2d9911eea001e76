// Package normalize applies the worker-side cleanup rules to parsed feed
// entries before they are placed on the wire: trimming, de-duplication by
// URL, and the published_at floor rule. It is idempotent — normalizing an
// already-normalized slice returns it unchanged.
package normalize

import (
	"strings"
	"time"

	"manifeed/internal/infra/feedparser"
)

// ArticlePublishedAtFloor is the cutoff below which an entry is discarded as
// stale rather than ingested. It is distinct from entity.EpochSentinel,
// which marks an article whose published_at is unknown at persistence time.
var ArticlePublishedAtFloor = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Entries trims text fields, drops entries with no title, URL, or
// published_at, discards entries published before ArticlePublishedAtFloor,
// and de-duplicates by URL keeping the first occurrence.
func Entries(raw []feedparser.Entry) []feedparser.Entry {
	seen := make(map[string]struct{}, len(raw))
	out := make([]feedparser.Entry, 0, len(raw))

	for _, e := range raw {
		title := strings.TrimSpace(e.Title)
		url := strings.TrimSpace(e.URL)
		if title == "" || url == "" || e.PublishedAt == nil {
			continue
		}
		if e.PublishedAt.Before(ArticlePublishedAtFloor) {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}

		published := e.PublishedAt.UTC()
		out = append(out, feedparser.Entry{
			Title:       title,
			URL:         url,
			Summary:     strings.TrimSpace(e.Summary),
			Author:      strings.TrimSpace(e.Author),
			PublishedAt: &published,
			ImageURL:    strings.TrimSpace(e.ImageURL),
		})
	}

	return out
}
