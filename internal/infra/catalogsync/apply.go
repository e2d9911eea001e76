package catalogsync

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

// feedFile is one entry in a company catalog file's "feeds" array, grounded
// on RssSourceFeedSchema.
type feedFile struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags"`
	TrustScore float64  `json:"trust_score"`
	Enabled    *bool    `json:"enabled"`
}

// companyFile is a single JSON catalog file's shape: one publisher company
// plus the feeds it owns, grounded on rss_sync_service.py's per-file loop.
type companyFile struct {
	Company         string     `json:"company"`
	Host            string     `json:"host"`
	Img             string     `json:"img"`
	Country         string     `json:"country"`
	Language        string     `json:"language"`
	Fetchprotection int        `json:"fetchprotection"`
	Feeds           []feedFile `json:"feeds"`
}

// Summary tallies what ApplyCatalog changed, mirroring RssSyncRead.
type Summary struct {
	ProcessedFiles   int
	ProcessedFeeds   int
	CreatedCompanies int
	CreatedFeeds     int
	UpdatedFeeds     int
}

// ApplyCatalog reads every relative JSON path under repoPath and upserts its
// company/feed rows through the repository layer. A full re-scan of the
// changed set is used rather than cross-referencing each file's prior
// content, trading a little extra repository traffic for a much simpler
// reconciliation step.
func ApplyCatalog(ctx context.Context, companies repository.CompanyRepository, feeds repository.FeedRepository, repoPath string, relativePaths []string) (Summary, error) {
	var summary Summary

	existingCompanies, err := companies.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("catalogsync: list companies: %w", err)
	}
	companyByName := make(map[string]*entity.Company, len(existingCompanies))
	for _, c := range existingCompanies {
		companyByName[strings.ToLower(c.Name)] = c
	}

	existingFeeds, err := feeds.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("catalogsync: list feeds: %w", err)
	}
	feedByURL := make(map[string]*entity.Feed, len(existingFeeds))
	for _, f := range existingFeeds {
		feedByURL[f.URL] = f
	}

	for _, relPath := range relativePaths {
		if !strings.HasSuffix(relPath, ".json") {
			continue
		}
		fullPath := filepath.Join(repoPath, relPath)
		data, err := os.ReadFile(fullPath)
		if os.IsNotExist(err) {
			continue // file was deleted in this sync; nothing to upsert
		}
		if err != nil {
			return summary, fmt.Errorf("catalogsync: read %s: %w", relPath, err)
		}

		var file companyFile
		if err := json.Unmarshal(data, &file); err != nil {
			return summary, fmt.Errorf("catalogsync: parse %s: %w", relPath, err)
		}
		summary.ProcessedFiles++

		companyName := strings.TrimSpace(file.Company)
		if companyName == "" {
			companyName = fallbackCompanyName(relPath)
		}

		company, existed := companyByName[strings.ToLower(companyName)]
		if !existed {
			company = &entity.Company{
				Name:            companyName,
				Host:            file.Host,
				IconURL:         file.Img,
				Country:         file.Country,
				Language:        file.Language,
				Fetchprotection: file.Fetchprotection,
				Enabled:         true,
			}
			if err := company.Validate(); err != nil {
				return summary, fmt.Errorf("catalogsync: validate company %q: %w", companyName, err)
			}
			if err := companies.Create(ctx, company); err != nil {
				return summary, fmt.Errorf("catalogsync: create company %q: %w", companyName, err)
			}
			companyByName[strings.ToLower(company.Name)] = company
			summary.CreatedCompanies++
		}

		for _, ff := range file.Feeds {
			summary.ProcessedFeeds++
			enabled := true
			if ff.Enabled != nil {
				enabled = *ff.Enabled
			}
			trust := ff.TrustScore

			if existing, ok := feedByURL[ff.URL]; ok {
				existing.CompanyID = &company.ID
				existing.Enabled = enabled
				existing.TrustScore = trust
				existing.Tags = ff.Tags
				if err := existing.Validate(); err != nil {
					return summary, fmt.Errorf("catalogsync: validate feed %q: %w", ff.URL, err)
				}
				if err := feeds.Update(ctx, existing); err != nil {
					return summary, fmt.Errorf("catalogsync: update feed %q: %w", ff.URL, err)
				}
				summary.UpdatedFeeds++
				continue
			}

			feed := &entity.Feed{
				URL:        ff.URL,
				CompanyID:  &company.ID,
				Enabled:    enabled,
				TrustScore: trust,
				Tags:       ff.Tags,
			}
			if err := feed.Validate(); err != nil {
				return summary, fmt.Errorf("catalogsync: validate feed %q: %w", ff.URL, err)
			}
			if err := feeds.Create(ctx, feed); err != nil {
				return summary, fmt.Errorf("catalogsync: create feed %q: %w", ff.URL, err)
			}
			feedByURL[feed.URL] = feed
			summary.CreatedFeeds++
		}
	}

	return summary, nil
}

func fallbackCompanyName(relPath string) string {
	base := filepath.Base(relPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
