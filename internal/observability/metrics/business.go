package metrics

import (
	"strconv"
	"time"
)

// RecordJobEnqueued records that the orchestrator created a job of the
// given kind, triggered either manually or by the ingest cron.
func RecordJobEnqueued(kind, trigger string, feedCount int) {
	JobsEnqueuedTotal.WithLabelValues(kind, trigger).Inc()
	if feedCount > 0 {
		JobFeedsEnqueuedTotal.WithLabelValues(kind).Add(float64(feedCount))
	}
}

// RecordJobResult records a single worker result applied by the
// persistence service. Status should be one of "success", "not_modified",
// or "error".
func RecordJobResult(queueKind, status string) {
	JobResultsTotal.WithLabelValues(queueKind, status).Inc()
}

// RecordJobCompletion records the duration from job creation to its
// terminal status transition.
func RecordJobCompletion(status string, duration time.Duration) {
	JobCompletionDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordArticlesIngested records the number of articles upserted by an
// ingest-kind job result.
func RecordArticlesIngested(count int) {
	if count > 0 {
		ArticlesIngestedTotal.Add(float64(count))
	}
}

// RecordFeedScrapeError records a fetch error for a feed, as tracked in
// its scraping state.
func RecordFeedScrapeError(feedID int64) {
	FeedScrapeErrorsTotal.WithLabelValues(strconv.FormatInt(feedID, 10)).Inc()
}

// RecordCatalogSync records the outcome of a catalog sync run and, on
// success, the counts of companies/feeds created or updated.
func RecordCatalogSync(repositoryAction string, err error, createdCompanies, createdFeeds, updatedFeeds int) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	CatalogSyncTotal.WithLabelValues(repositoryAction, outcome).Inc()

	if err != nil {
		return
	}
	if createdCompanies > 0 {
		CatalogSyncChangesTotal.WithLabelValues("company", "created").Add(float64(createdCompanies))
	}
	if createdFeeds > 0 {
		CatalogSyncChangesTotal.WithLabelValues("feed", "created").Add(float64(createdFeeds))
	}
	if updatedFeeds > 0 {
		CatalogSyncChangesTotal.WithLabelValues("feed", "updated").Add(float64(updatedFeeds))
	}
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_articles", "insert_article").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
