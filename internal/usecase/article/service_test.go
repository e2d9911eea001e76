package article_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"manifeed/internal/common/pagination"
	"manifeed/internal/domain/entity"
	"manifeed/internal/repository"
	"manifeed/internal/usecase/article"
)

type stubRepo struct {
	byID    map[int64]*entity.Article
	paged   []repository.ArticleWithFeed
	total   int64
	getErr  error
	listErr error
}

func newStub() *stubRepo {
	return &stubRepo{byID: map[int64]*entity.Article{}}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*entity.Article, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.byID[id], nil
}

func (s *stubRepo) ListPaginated(_ context.Context, _ repository.ArticleSearchFilters, offset, limit int) ([]repository.ArticleWithFeed, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if offset >= len(s.paged) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.paged) {
		end = len(s.paged)
	}
	return s.paged[offset:end], nil
}

func (s *stubRepo) CountArticles(_ context.Context, _ repository.ArticleSearchFilters) (int64, error) {
	return s.total, nil
}

func (s *stubRepo) UpsertForFeed(_ context.Context, _ int64, a *entity.Article) (int64, error) {
	return a.ID, nil
}

func TestService_Get(t *testing.T) {
	repo := newStub()
	repo.byID[1] = &entity.Article{ID: 1, Title: "hello", PublishedAt: time.Now()}
	svc := &article.Service{Repo: repo}

	got, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "hello" {
		t.Errorf("Title = %q, want hello", got.Title)
	}
}

func TestService_Get_InvalidID(t *testing.T) {
	svc := &article.Service{Repo: newStub()}
	if _, err := svc.Get(context.Background(), 0); !errors.Is(err, article.ErrInvalidArticleID) {
		t.Errorf("err = %v, want ErrInvalidArticleID", err)
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc := &article.Service{Repo: newStub()}
	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, article.ErrArticleNotFound) {
		t.Errorf("err = %v, want ErrArticleNotFound", err)
	}
}

func TestService_ListPaginated(t *testing.T) {
	repo := newStub()
	repo.total = 3
	repo.paged = []repository.ArticleWithFeed{
		{Article: &entity.Article{ID: 1}, FeedID: 10},
		{Article: &entity.Article{ID: 2}, FeedID: 10},
		{Article: &entity.Article{ID: 3}, FeedID: 11},
	}
	svc := &article.Service{Repo: repo}

	result, err := svc.ListPaginated(context.Background(), repository.ArticleSearchFilters{}, pagination.Params{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Data) != 2 {
		t.Errorf("len(Data) = %d, want 2", len(result.Data))
	}
	if result.Pagination.Total != 3 {
		t.Errorf("Total = %d, want 3", result.Pagination.Total)
	}
	if result.Pagination.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", result.Pagination.TotalPages)
	}
}
