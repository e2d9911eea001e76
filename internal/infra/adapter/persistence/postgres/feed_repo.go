package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

type FeedRepo struct{ db *sql.DB }

func NewFeedRepo(db *sql.DB) repository.FeedRepository {
	return &FeedRepo{db: db}
}

const feedColumns = `id, company_id, url, section, enabled, trust_score, fetchprotection, tags`

func scanFeed(row interface{ Scan(...any) error }) (*entity.Feed, error) {
	var f entity.Feed
	var tags []string
	if err := row.Scan(&f.ID, &f.CompanyID, &f.URL, &f.Section, &f.Enabled, &f.TrustScore, &f.Fetchprotection, &tags); err != nil {
		return nil, err
	}
	f.Tags = tags
	return &f, nil
}

func (repo *FeedRepo) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = $1 LIMIT 1`
	feed, err := scanFeed(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return feed, nil
}

func (repo *FeedRepo) List(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) ListByIDs(ctx context.Context, ids []int64) ([]*entity.Feed, error) {
	if len(ids) == 0 {
		return []*entity.Feed{}, nil
	}
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE id = ANY($1) ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ListByIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, len(ids))
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListByIDs: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) ListEnabled(ctx context.Context) ([]*entity.Feed, error) {
	query := `SELECT ` + feedColumns + ` FROM feeds WHERE enabled = TRUE ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListEnabled: %w", err)
	}
	defer func() { _ = rows.Close() }()

	feeds := make([]*entity.Feed, 0, 50)
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("ListEnabled: Scan: %w", err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

func (repo *FeedRepo) Create(ctx context.Context, feed *entity.Feed) error {
	const query = `
INSERT INTO feeds (company_id, url, section, enabled, trust_score, fetchprotection, tags)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	return repo.db.QueryRowContext(ctx, query,
		feed.CompanyID, feed.URL, feed.Section, feed.Enabled, feed.TrustScore, feed.Fetchprotection, feed.Tags,
	).Scan(&feed.ID)
}

func (repo *FeedRepo) Update(ctx context.Context, feed *entity.Feed) error {
	const query = `
UPDATE feeds SET
       company_id      = $1,
       url             = $2,
       section         = $3,
       enabled         = $4,
       trust_score     = $5,
       fetchprotection = $6,
       tags            = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		feed.CompanyID, feed.URL, feed.Section, feed.Enabled, feed.TrustScore, feed.Fetchprotection, feed.Tags, feed.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *FeedRepo) Delete(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *FeedRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE feeds SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("SetEnabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

type CompanyRepo struct{ db *sql.DB }

func NewCompanyRepo(db *sql.DB) repository.CompanyRepository {
	return &CompanyRepo{db: db}
}

const companyColumns = `id, name, host, icon_url, country, language, fetchprotection, enabled`

func scanCompany(row interface{ Scan(...any) error }) (*entity.Company, error) {
	var c entity.Company
	if err := row.Scan(&c.ID, &c.Name, &c.Host, &c.IconURL, &c.Country, &c.Language, &c.Fetchprotection, &c.Enabled); err != nil {
		return nil, err
	}
	return &c, nil
}

func (repo *CompanyRepo) Get(ctx context.Context, id int64) (*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 LIMIT 1`
	company, err := scanCompany(repo.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return company, nil
}

func (repo *CompanyRepo) List(ctx context.Context) ([]*entity.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies ORDER BY id ASC`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()

	companies := make([]*entity.Company, 0, 50)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("List: Scan: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (repo *CompanyRepo) Create(ctx context.Context, company *entity.Company) error {
	const query = `
INSERT INTO companies (name, host, icon_url, country, language, fetchprotection, enabled)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`
	return repo.db.QueryRowContext(ctx, query,
		company.Name, company.Host, company.IconURL, company.Country, company.Language, company.Fetchprotection, company.Enabled,
	).Scan(&company.ID)
}

func (repo *CompanyRepo) Update(ctx context.Context, company *entity.Company) error {
	const query = `
UPDATE companies SET
       name            = $1,
       host            = $2,
       icon_url        = $3,
       country         = $4,
       language        = $5,
       fetchprotection = $6,
       enabled         = $7
WHERE id = $8`
	res, err := repo.db.ExecContext(ctx, query,
		company.Name, company.Host, company.IconURL, company.Country, company.Language, company.Fetchprotection, company.Enabled, company.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (repo *CompanyRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE companies SET enabled = $1 WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("SetEnabled: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
