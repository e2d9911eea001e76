package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

type ScrapePayloadRepo struct{ db *sql.DB }

func NewScrapePayloadRepo(db *sql.DB) repository.ScrapePayloadRepository {
	return &ScrapePayloadRepo{db: db}
}

// ListScrapePayloads joins feeds to their owning company, current scraping
// state, and the latest recorded article published_at for the feed, so the
// orchestrator can build one FeedPayload per row without further queries.
func (repo *ScrapePayloadRepo) ListScrapePayloads(ctx context.Context, feedIDs []int64, enabledOnly bool) ([]repository.FeedScrapePayload, error) {
	query := `
SELECT
    f.id, f.company_id, f.url, f.section, f.enabled, f.trust_score, f.fetchprotection, f.tags,
    c.id, c.name, c.host, c.icon_url, c.country, c.language, c.fetchprotection, c.enabled,
    s.feed_id, s.fetchprotection, s.last_update, s.etag, s.error_nbr, s.error_msg,
    (SELECT MAX(afl.published_at) FROM article_feed_links afl WHERE afl.feed_id = f.id)
FROM feeds f
LEFT JOIN companies c ON c.id = f.company_id
LEFT JOIN feed_scraping_state s ON s.feed_id = f.id
WHERE ($1::bigint[] IS NULL OR f.id = ANY($1))
  AND ($2::bool IS FALSE OR f.enabled = TRUE)
ORDER BY f.id ASC`

	var idFilter any
	if len(feedIDs) > 0 {
		idFilter = feedIDs
	}

	rows, err := repo.db.QueryContext(ctx, query, idFilter, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("ListScrapePayloads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []repository.FeedScrapePayload
	for rows.Next() {
		var (
			feed    entity.Feed
			tags    []string
			company entity.Company

			companyID       sql.NullInt64
			companyName     sql.NullString
			companyHost     sql.NullString
			companyIconURL  sql.NullString
			companyCountry  sql.NullString
			companyLanguage sql.NullString
			companyFp       sql.NullInt64
			companyEnabled  sql.NullBool

			stateFeedID sql.NullInt64
			stateFp     sql.NullInt64
			lastUpdate  sql.NullTime
			etag        sql.NullString
			errorNbr    sql.NullInt64
			errorMsg    sql.NullString

			lastArticlePublishedAt sql.NullTime
		)

		if err := rows.Scan(
			&feed.ID, &feed.CompanyID, &feed.URL, &feed.Section, &feed.Enabled, &feed.TrustScore, &feed.Fetchprotection, &tags,
			&companyID, &companyName, &companyHost, &companyIconURL, &companyCountry, &companyLanguage, &companyFp, &companyEnabled,
			&stateFeedID, &stateFp, &lastUpdate, &etag, &errorNbr, &errorMsg,
			&lastArticlePublishedAt,
		); err != nil {
			return nil, fmt.Errorf("ListScrapePayloads: Scan: %w", err)
		}
		feed.Tags = tags

		payload := repository.FeedScrapePayload{Feed: &feed}

		if companyID.Valid {
			company = entity.Company{
				ID:              companyID.Int64,
				Name:            companyName.String,
				Host:            companyHost.String,
				IconURL:         companyIconURL.String,
				Country:         companyCountry.String,
				Language:        companyLanguage.String,
				Fetchprotection: int(companyFp.Int64),
				Enabled:         companyEnabled.Bool,
			}
			payload.Company = &company
		}

		if stateFeedID.Valid {
			state := entity.FeedScrapingState{
				FeedID:          stateFeedID.Int64,
				Fetchprotection: int(stateFp.Int64),
				ErrorNbr:        int(errorNbr.Int64),
				ErrorMsg:        errorMsg.String,
			}
			if lastUpdate.Valid {
				t := lastUpdate.Time
				state.LastUpdate = &t
			}
			if etag.Valid {
				state.ETag = etag.String
			}
			payload.ScrapingState = &state
		}

		if lastArticlePublishedAt.Valid {
			var t time.Time = lastArticlePublishedAt.Time
			payload.LastDBArticlePublishedAt = &t
		}

		out = append(out, payload)
	}
	return out, rows.Err()
}
