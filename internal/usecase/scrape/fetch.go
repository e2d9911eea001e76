// Package scrape implements the Scrape Worker's per-feed fetch pipeline and
// its company-grouped concurrent fan-out, grounded on
// rss_fetch_networking_client.py and scrape_job_service.py.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"manifeed/internal/domain/normalize"
	"manifeed/internal/infra/feedparser"
	"manifeed/internal/repository"
	"manifeed/internal/resilience/circuitbreaker"
	"manifeed/internal/resilience/retry"
)

const (
	fetchTimeout = 15 * time.Second
	blockedMsg   = "Blocked by fetch protection"
)

// Fetcher runs the per-feed fetch algorithm: conditional-header HTTP GET
// with linear-backoff retry and a circuit breaker, 304/version-collapse
// detection, and feed parsing/normalization on an actual body change.
type Fetcher struct {
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{
		client:  client,
		breaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
	}
}

// FetchFeed fetches and, on a genuine change, parses and normalizes one
// feed. The returned result never carries job_id/ingest — the caller fills
// those in before publishing.
func (f *Fetcher) FetchFeed(ctx context.Context, feed repository.FeedPayload) repository.WorkerResult {
	if feed.Fetchprotection == 0 {
		return errorResult(feed, blockedMsg, "", nil)
	}

	headers := buildRequestHeaders(feed)

	resp, body, err := f.performWithRetry(ctx, feed.FeedURL, headers)
	if err != nil {
		return errorResult(feed, fmt.Sprintf("Request error: %v", err), "", nil)
	}

	responseETag := cleanHeaderValue(resp.Header.Get("ETag"))
	responseLastModified := parseHTTPDate(resp.Header.Get("Last-Modified"))

	if resp.StatusCode == http.StatusNotModified {
		return notModifiedResult(feed, responseETag, responseLastModified)
	}

	if isSameVersion(feed, responseETag, responseLastModified) {
		return notModifiedResult(feed, responseETag, responseLastModified)
	}

	entries, parsedLastModified, err := feedparser.Parse(body)
	if err != nil {
		return errorResult(feed, fmt.Sprintf("Feed parse error: %v", err), responseETag, responseLastModified)
	}
	normalized := normalize.Entries(entries)

	newLastUpdate := responseLastModified
	if newLastUpdate == nil {
		newLastUpdate = parsedLastModified
	}

	result := repository.WorkerResult{
		FeedID:          feed.FeedID,
		FeedURL:         feed.FeedURL,
		Status:          "success",
		Fetchprotection: feed.Fetchprotection,
		NewETag:         orEmpty(responseETag),
		Sources:         entriesToSources(normalized),
	}
	if newLastUpdate != nil {
		formatted := newLastUpdate.UTC().Format(time.RFC3339)
		result.NewLastUpdate = &formatted
	}
	return result
}

func (f *Fetcher) performWithRetry(ctx context.Context, url string, headers map[string]string) (*http.Response, []byte, error) {
	var resp *http.Response
	var body []byte

	err := retry.WithLinearBackoff(ctx, retry.LinearFeedFetchConfig(), func() error {
		result, execErr := f.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			for k, v := range headers {
				req.Header.Set(k, v)
			}

			httpResp, err := f.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer httpResp.Body.Close()

			data, err := io.ReadAll(httpResp.Body)
			if err != nil {
				return nil, err
			}

			if httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusNotModified {
				return nil, &retry.HTTPError{StatusCode: httpResp.StatusCode, Message: fmt.Sprintf("HTTP %d while checking %s", httpResp.StatusCode, url)}
			}

			return fetchOutcome{resp: httpResp, body: data}, nil
		})
		if execErr != nil {
			return execErr
		}
		outcome := result.(fetchOutcome)
		resp = outcome.resp
		body = outcome.body
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

type fetchOutcome struct {
	resp *http.Response
	body []byte
}

func buildRequestHeaders(feed repository.FeedPayload) map[string]string {
	headers := map[string]string{}

	if feed.Fetchprotection == 2 {
		for k, v := range defaultRSSHeaders {
			headers[k] = v
		}
		if feed.HostHeader != "" {
			host := strings.ToLower(strings.TrimSpace(feed.HostHeader))
			origin := "https://" + host
			headers["Host"] = host
			headers["Origin"] = origin
			headers["Referer"] = origin + "/"
		}
	}

	if cleaned := cleanHeaderValue(feed.ETag); cleaned != nil {
		headers["If-None-Match"] = *cleaned
	}

	if feed.LastUpdate != nil {
		if t, err := time.Parse(time.RFC3339, *feed.LastUpdate); err == nil {
			headers["If-Modified-Since"] = formatHTTPDate(t)
		}
	}

	return headers
}

var defaultRSSHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:140.0) Gecko/20100101 Firefox/140.0",
	"Accept-Language": "en-US,en;q=0.9,fr;q=0.8",
	"Accept":          "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5",
	"Accept-Encoding": "gzip, deflate, br",
	"Cache-Control":   "no-cache",
	"Connection":      "keep-alive",
	"Pragma":          "no-cache",
}

func isSameVersion(feed repository.FeedPayload, responseETag *string, responseLastModified *time.Time) bool {
	if feed.LastUpdate != nil && responseLastModified != nil {
		if t, err := time.Parse(time.RFC3339, *feed.LastUpdate); err == nil {
			if t.UTC().Equal(responseLastModified.UTC()) {
				return true
			}
		}
	}
	if feed.ETag != "" && responseETag != nil {
		if strings.TrimSpace(feed.ETag) == *responseETag {
			return true
		}
	}
	return false
}

func formatHTTPDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT")
}

func parseHTTPDate(value string) *time.Time {
	cleaned := cleanHeaderValue(value)
	if cleaned == nil {
		return nil
	}
	t, err := mail.ParseDate(*cleaned)
	if err != nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func cleanHeaderValue(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func errorResult(feed repository.FeedPayload, message string, etag string, lastUpdate *time.Time) repository.WorkerResult {
	result := repository.WorkerResult{
		FeedID:          feed.FeedID,
		FeedURL:         feed.FeedURL,
		Status:          "error",
		ErrorMessage:    message,
		Fetchprotection: feed.Fetchprotection,
		NewETag:         etag,
	}
	if lastUpdate != nil {
		formatted := lastUpdate.UTC().Format(time.RFC3339)
		result.NewLastUpdate = &formatted
	}
	return result
}

func notModifiedResult(feed repository.FeedPayload, etag *string, lastUpdate *time.Time) repository.WorkerResult {
	result := repository.WorkerResult{
		FeedID:          feed.FeedID,
		FeedURL:         feed.FeedURL,
		Status:          "not_modified",
		Fetchprotection: feed.Fetchprotection,
		NewETag:         orEmpty(etag),
	}
	if lastUpdate != nil {
		formatted := lastUpdate.UTC().Format(time.RFC3339)
		result.NewLastUpdate = &formatted
	}
	return result
}

func entriesToSources(entries []feedparser.Entry) []repository.FeedSource {
	sources := make([]repository.FeedSource, 0, len(entries))
	for _, e := range entries {
		source := repository.FeedSource{
			Title:    e.Title,
			URL:      e.URL,
			Summary:  e.Summary,
			Author:   e.Author,
			ImageURL: e.ImageURL,
		}
		if e.PublishedAt != nil {
			formatted := e.PublishedAt.UTC().Format(time.RFC3339)
			source.PublishedAt = &formatted
		}
		sources = append(sources, source)
	}
	return sources
}
