package db

import "database/sql"

// MigrateUp creates the catalog, crawl-state, job, and article schema if it
// does not already exist. Every statement is idempotent so MigrateUp is safe
// to run on every process start.
func MigrateUp(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
    id              SERIAL PRIMARY KEY,
    name            TEXT NOT NULL,
    host            TEXT NOT NULL DEFAULT '',
    icon_url        TEXT NOT NULL DEFAULT '',
    country         TEXT NOT NULL DEFAULT '',
    language        TEXT NOT NULL DEFAULT '',
    fetchprotection SMALLINT NOT NULL DEFAULT 1,
    enabled         BOOLEAN NOT NULL DEFAULT TRUE
)`,
		`CREATE TABLE IF NOT EXISTS feeds (
    id              SERIAL PRIMARY KEY,
    company_id      INTEGER REFERENCES companies(id),
    url             TEXT NOT NULL UNIQUE,
    section         TEXT NOT NULL DEFAULT '',
    enabled         BOOLEAN NOT NULL DEFAULT TRUE,
    trust_score     REAL NOT NULL DEFAULT 0.5,
    fetchprotection SMALLINT,
    tags            TEXT[] NOT NULL DEFAULT '{}'
)`,
		`CREATE TABLE IF NOT EXISTS feed_scraping_state (
    feed_id         INTEGER PRIMARY KEY REFERENCES feeds(id) ON DELETE CASCADE,
    fetchprotection SMALLINT NOT NULL DEFAULT 1,
    last_update     TIMESTAMPTZ,
    etag            TEXT NOT NULL DEFAULT '',
    error_nbr       INTEGER NOT NULL DEFAULT 0,
    error_msg       TEXT NOT NULL DEFAULT ''
)`,
		`CREATE TABLE IF NOT EXISTS articles (
    id           SERIAL PRIMARY KEY,
    title        TEXT NOT NULL,
    url          TEXT NOT NULL,
    summary      TEXT NOT NULL DEFAULT '',
    author       TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (url, published_at)
)`,
		`CREATE TABLE IF NOT EXISTS article_feed_links (
    source_id    INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    feed_id      INTEGER NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    published_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (source_id, feed_id, published_at)
)`,
		`CREATE TABLE IF NOT EXISTS jobs (
    job_id       UUID PRIMARY KEY,
    ingest       BOOLEAN NOT NULL,
    requested_by TEXT NOT NULL DEFAULT '',
    requested_at TIMESTAMPTZ NOT NULL,
    feed_count   INTEGER NOT NULL,
    status       TEXT NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE TABLE IF NOT EXISTS job_feeds (
    job_id                        UUID NOT NULL REFERENCES jobs(job_id) ON DELETE CASCADE,
    feed_id                       INTEGER NOT NULL,
    feed_url                      TEXT NOT NULL,
    last_db_article_published_at TIMESTAMPTZ,
    PRIMARY KEY (job_id, feed_id)
)`,
		`CREATE TABLE IF NOT EXISTS job_results (
    job_id          UUID NOT NULL REFERENCES jobs(job_id) ON DELETE CASCADE,
    feed_id         INTEGER NOT NULL,
    status          TEXT NOT NULL,
    queue_kind      TEXT NOT NULL,
    error_message   TEXT NOT NULL DEFAULT '',
    fetchprotection SMALLINT NOT NULL DEFAULT 1,
    new_etag        TEXT NOT NULL DEFAULT '',
    new_last_update TIMESTAMPTZ,
    processed_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (job_id, feed_id)
)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_feeds_company_id ON feeds(company_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feeds_enabled ON feeds(enabled) WHERE enabled = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_article_feed_links_feed_id ON article_feed_links(feed_id)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_job_feeds_job_id ON job_feeds(job_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_results_job_id ON job_results(job_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown drops the schema this package owns, in dependency order. Use
// with caution: this deletes all data in the affected tables.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS job_results CASCADE`,
		`DROP TABLE IF EXISTS job_feeds CASCADE`,
		`DROP TABLE IF EXISTS jobs CASCADE`,
		`DROP TABLE IF EXISTS article_feed_links CASCADE`,
		`DROP TABLE IF EXISTS articles CASCADE`,
		`DROP TABLE IF EXISTS feed_scraping_state CASCADE`,
		`DROP TABLE IF EXISTS feeds CASCADE`,
		`DROP TABLE IF EXISTS companies CASCADE`,
	}
	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
