// Package catalog implements the company/feed catalog operations behind the
// control endpoints: listing, enabling/disabling, and git-sourced sync,
// grounded on rss_sync_service.py and the original backend's rss catalog
// router.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"manifeed/internal/domain/entity"
	"manifeed/internal/infra/catalogsync"
	"manifeed/internal/joblock"
	"manifeed/internal/observability/metrics"
	"manifeed/internal/repository"
)

// SyncResult mirrors RssSyncRead: what a sync run actually changed.
type SyncResult struct {
	RepositoryAction catalogsync.RepositoryAction
	ProcessedFiles   int
	ProcessedFeeds   int
	CreatedCompanies int
	CreatedFeeds     int
	UpdatedFeeds     int
}

// Entry is one company and the feeds it owns, for the catalog listing.
type Entry struct {
	Company *entity.Company
	Feeds   []*entity.Feed
}

// Config holds the git-sourced catalog's location, environment-tunable.
type Config struct {
	RepositoryURL  string
	RepositoryPath string
	Branch         string
}

type Service struct {
	companies repository.CompanyRepository
	feeds     repository.FeedRepository
	db        *sql.DB
	cfg       Config
}

func NewService(companies repository.CompanyRepository, feeds repository.FeedRepository, db *sql.DB, cfg Config) *Service {
	return &Service{companies: companies, feeds: feeds, db: db, cfg: cfg}
}

// List returns every company with its feeds, for the catalog read endpoint.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list companies: %w", err)
	}
	feeds, err := s.feeds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list feeds: %w", err)
	}

	byCompany := map[int64][]*entity.Feed{}
	var orphanFeeds []*entity.Feed
	for _, f := range feeds {
		if f.CompanyID == nil {
			orphanFeeds = append(orphanFeeds, f)
			continue
		}
		byCompany[*f.CompanyID] = append(byCompany[*f.CompanyID], f)
	}

	entries := make([]Entry, 0, len(companies)+1)
	for _, c := range companies {
		entries = append(entries, Entry{Company: c, Feeds: byCompany[c.ID]})
	}
	if len(orphanFeeds) > 0 {
		entries = append(entries, Entry{Feeds: orphanFeeds})
	}
	return entries, nil
}

// SetFeedEnabled toggles one feed's catalog membership, single-writer
// guarded by the rss_patch_feed_enabled job lock.
func (s *Service) SetFeedEnabled(ctx context.Context, feedID int64, enabled bool) error {
	release, err := joblock.Acquire(ctx, s.db, joblock.LockFeedEnabled)
	if err != nil {
		return err
	}
	defer release()

	if err := s.feeds.SetEnabled(ctx, feedID, enabled); err != nil {
		return fmt.Errorf("catalog: set feed enabled: %w", err)
	}
	return nil
}

// SetCompanyEnabled toggles a company and, transitively, visibility of its
// feeds to future jobs (ScrapePayloadRepository filters on the feed's own
// Enabled flag, not the company's — the company flag only gates whether the
// company itself is considered active in the catalog view).
func (s *Service) SetCompanyEnabled(ctx context.Context, companyID int64, enabled bool) error {
	release, err := joblock.Acquire(ctx, s.db, joblock.LockCompanyEnabled)
	if err != nil {
		return err
	}
	defer release()

	if err := s.companies.SetEnabled(ctx, companyID, enabled); err != nil {
		return fmt.Errorf("catalog: set company enabled: %w", err)
	}
	return nil
}

// Sync pulls the catalog repository and applies any changed company/feed
// definition files, single-writer guarded by the rss_sync job lock.
func (s *Service) Sync(ctx context.Context, force bool) (*SyncResult, error) {
	release, err := joblock.Acquire(ctx, s.db, joblock.LockSync)
	if err != nil {
		return nil, err
	}
	defer release()

	repoSync, err := catalogsync.PullOrClone(ctx, s.cfg.RepositoryURL, s.cfg.RepositoryPath, s.cfg.Branch, force)
	if err != nil {
		metrics.RecordCatalogSync("unknown", err, 0, 0, 0)
		return nil, fmt.Errorf("catalog: sync repository: %w", err)
	}

	result := &SyncResult{RepositoryAction: repoSync.Action}
	if len(repoSync.ChangedFiles) == 0 {
		metrics.RecordCatalogSync(string(repoSync.Action), nil, 0, 0, 0)
		return result, nil
	}

	summary, err := catalogsync.ApplyCatalog(ctx, s.companies, s.feeds, s.cfg.RepositoryPath, repoSync.ChangedFiles)
	if err != nil {
		metrics.RecordCatalogSync(string(repoSync.Action), err, 0, 0, 0)
		return nil, fmt.Errorf("catalog: apply catalog: %w", err)
	}

	result.ProcessedFiles = summary.ProcessedFiles
	result.ProcessedFeeds = summary.ProcessedFeeds
	result.CreatedCompanies = summary.CreatedCompanies
	result.CreatedFeeds = summary.CreatedFeeds
	result.UpdatedFeeds = summary.UpdatedFeeds
	metrics.RecordCatalogSync(string(repoSync.Action), nil, result.CreatedCompanies, result.CreatedFeeds, result.UpdatedFeeds)
	return result, nil
}
