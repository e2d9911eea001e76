package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

type ArticleRepo struct{ db *sql.DB }

func NewArticleRepo(db *sql.DB) repository.ArticleRepository {
	return &ArticleRepo{db: db}
}

func (repo *ArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) {
	const query = `
SELECT id, title, url, summary, author, image_url, published_at, created_at
FROM articles
WHERE id = $1
LIMIT 1`
	var a entity.Article
	err := repo.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.Title, &a.URL, &a.Summary, &a.Author, &a.ImageURL, &a.PublishedAt, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &a, nil
}

func (repo *ArticleRepo) ListPaginated(ctx context.Context, filters repository.ArticleSearchFilters, offset, limit int) ([]repository.ArticleWithFeed, error) {
	query := `
SELECT a.id, a.title, a.url, a.summary, a.author, a.image_url, a.published_at, a.created_at, afl.feed_id
FROM articles a
INNER JOIN article_feed_links afl ON afl.source_id = a.id
INNER JOIN feeds f ON f.id = afl.feed_id
WHERE 1 = 1`
	args := []any{}
	query, args = appendArticleFilters(query, args, filters)
	query += fmt.Sprintf(" ORDER BY a.published_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := repo.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListPaginated: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.ArticleWithFeed, 0, limit)
	for rows.Next() {
		var a entity.Article
		var feedID int64
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Summary, &a.Author, &a.ImageURL, &a.PublishedAt, &a.CreatedAt, &feedID); err != nil {
			return nil, fmt.Errorf("ListPaginated: Scan: %w", err)
		}
		result = append(result, repository.ArticleWithFeed{Article: &a, FeedID: feedID})
	}
	return result, rows.Err()
}

func (repo *ArticleRepo) CountArticles(ctx context.Context, filters repository.ArticleSearchFilters) (int64, error) {
	query := `
SELECT COUNT(DISTINCT a.id)
FROM articles a
INNER JOIN article_feed_links afl ON afl.source_id = a.id
INNER JOIN feeds f ON f.id = afl.feed_id
WHERE 1 = 1`
	args := []any{}
	query, args = appendArticleFilters(query, args, filters)

	var count int64
	if err := repo.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountArticles: %w", err)
	}
	return count, nil
}

func appendArticleFilters(query string, args []any, filters repository.ArticleSearchFilters) (string, []any) {
	if filters.FeedID != nil {
		args = append(args, *filters.FeedID)
		query += fmt.Sprintf(" AND afl.feed_id = $%d", len(args))
	}
	if filters.CompanyID != nil {
		args = append(args, *filters.CompanyID)
		query += fmt.Sprintf(" AND f.company_id = $%d", len(args))
	}
	return query, args
}

// UpsertForFeed inserts or updates an article keyed on (url, published_at).
// On conflict Title is overwritten and Summary/Author/ImageURL are COALESCEd
// so a later, sparser fetch never blanks out a previously-seen value. The
// (source, feed, published_at) link is then upserted, ON CONFLICT DO NOTHING.
func (repo *ArticleRepo) UpsertForFeed(ctx context.Context, feedID int64, article *entity.Article) (int64, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("UpsertForFeed: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertArticle = `
INSERT INTO articles (title, url, summary, author, image_url, published_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (url, published_at) DO UPDATE SET
    title      = EXCLUDED.title,
    summary    = COALESCE(NULLIF(EXCLUDED.summary, ''), articles.summary),
    author     = COALESCE(NULLIF(EXCLUDED.author, ''), articles.author),
    image_url  = COALESCE(NULLIF(EXCLUDED.image_url, ''), articles.image_url)
RETURNING id`

	var articleID int64
	if err := tx.QueryRowContext(ctx, upsertArticle,
		article.Title, article.URL, article.Summary, article.Author, article.ImageURL, article.PublishedAt,
	).Scan(&articleID); err != nil {
		return 0, fmt.Errorf("UpsertForFeed: upsert article: %w", err)
	}

	const upsertLink = `
INSERT INTO article_feed_links (source_id, feed_id, published_at)
VALUES ($1, $2, $3)
ON CONFLICT (source_id, feed_id, published_at) DO NOTHING`
	if _, err := tx.ExecContext(ctx, upsertLink, articleID, feedID, article.PublishedAt); err != nil {
		return 0, fmt.Errorf("UpsertForFeed: upsert link: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("UpsertForFeed: commit: %w", err)
	}
	return articleID, nil
}

type FeedScrapingStateRepo struct{ db *sql.DB }

func NewFeedScrapingStateRepo(db *sql.DB) repository.FeedScrapingStateRepository {
	return &FeedScrapingStateRepo{db: db}
}

func (repo *FeedScrapingStateRepo) Get(ctx context.Context, feedID int64) (*entity.FeedScrapingState, error) {
	const query = `
SELECT feed_id, fetchprotection, last_update, etag, error_nbr, error_msg
FROM feed_scraping_state
WHERE feed_id = $1
LIMIT 1`
	var s entity.FeedScrapingState
	var lastUpdate sql.NullTime
	err := repo.db.QueryRowContext(ctx, query, feedID).
		Scan(&s.FeedID, &s.Fetchprotection, &lastUpdate, &s.ETag, &s.ErrorNbr, &s.ErrorMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	if lastUpdate.Valid {
		s.LastUpdate = &lastUpdate.Time
	}
	return &s, nil
}

// Upsert applies the FeedScrapingState merge rule: Fetchprotection always
// overwrites; LastUpdate/ETag are COALESCEd so a not_modified result (which
// carries neither) doesn't erase the last known values; on isError the error
// counter increments and the message is overwritten, otherwise the counter
// is left alone and the message is cleared.
func (repo *FeedScrapingStateRepo) Upsert(ctx context.Context, state *entity.FeedScrapingState, isError bool) error {
	const query = `
INSERT INTO feed_scraping_state (feed_id, fetchprotection, last_update, etag, error_nbr, error_msg)
VALUES ($1, $2, $3, $4, CASE WHEN $5 THEN 1 ELSE 0 END, CASE WHEN $5 THEN $6 ELSE '' END)
ON CONFLICT (feed_id) DO UPDATE SET
    fetchprotection = EXCLUDED.fetchprotection,
    last_update     = COALESCE($3, feed_scraping_state.last_update),
    etag            = COALESCE(NULLIF($4, ''), feed_scraping_state.etag),
    error_nbr       = CASE WHEN $5 THEN feed_scraping_state.error_nbr + 1 ELSE feed_scraping_state.error_nbr END,
    error_msg       = CASE WHEN $5 THEN $6 ELSE '' END`
	_, err := repo.db.ExecContext(ctx, query,
		state.FeedID, state.Fetchprotection, state.LastUpdate, state.ETag, isError, state.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
