package article

import (
	"context"
	"fmt"

	"manifeed/internal/common/pagination"
	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
)

// Service provides the read-only article queries behind the paginated
// article endpoints. Ingestion writes go through internal/usecase/persist
// instead — this service never mutates an article.
type Service struct {
	Repo repository.ArticleRepository
}

// PaginatedResult is a page of articles plus the metadata needed to render
// pagination controls.
type PaginatedResult struct {
	Data       []repository.ArticleWithFeed
	Pagination pagination.Metadata
}

// ListPaginated retrieves a page of articles, optionally restricted to one
// feed or one company's feeds.
func (s *Service) ListPaginated(ctx context.Context, filters repository.ArticleSearchFilters, params pagination.Params) (*PaginatedResult, error) {
	offset := pagination.CalculateOffset(params.Page, params.Limit)

	total, err := s.Repo.CountArticles(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	articles, err := s.Repo.ListPaginated(ctx, filters, offset, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("list articles paginated: %w", err)
	}

	return &PaginatedResult{
		Data: articles,
		Pagination: pagination.Metadata{
			Total:      total,
			Page:       params.Page,
			Limit:      params.Limit,
			TotalPages: pagination.CalculateTotalPages(total, params.Limit),
		},
	}, nil
}

// Get retrieves a single article by its ID.
// Returns ErrInvalidArticleID if the ID is not positive.
// Returns ErrArticleNotFound if the article does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Article, error) {
	if id <= 0 {
		return nil, ErrInvalidArticleID
	}

	article, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	if article == nil {
		return nil, ErrArticleNotFound
	}
	return article, nil
}
