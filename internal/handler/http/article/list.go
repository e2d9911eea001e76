package article

import (
	"log/slog"
	"net/http"
	"time"

	"manifeed/internal/common/pagination"
	"manifeed/internal/handler/http/pathutil"
	"manifeed/internal/handler/http/requestid"
	"manifeed/internal/handler/http/respond"
	"manifeed/internal/observability/logging"
	"manifeed/internal/repository"
	artUC "manifeed/internal/usecase/article"
)

// ListHandler serves paginated article reads, optionally scoped to one feed
// or one company, depending on which route registered it.
type ListHandler struct {
	Svc           artUC.Service
	PaginationCfg pagination.Config
	Logger        *slog.Logger
	Scope         Scope
}

// Scope selects which path segment (if any) restricts the listing.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeFeed
	ScopeCompany
)

// ServeHTTP returns a paginated page of articles.
// @Summary      List articles
// @Tags         sources
// @Security     BearerAuth
// @Produce      json
// @Param        page   query    int  false  "page number" default(1)
// @Param        limit  query    int  false  "items per page" default(20)
// @Success      200 {object} pagination.Response[DTO]
// @Router       /sources [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	reqID := requestid.FromContext(ctx)
	logger := logging.WithRequestID(ctx, h.Logger)

	params, err := pagination.ParseQueryParams(r, h.PaginationCfg)
	if err != nil {
		logger.Warn("invalid pagination parameters", "error", err.Error(), "request_id", reqID)
		pagination.RecordError("validation")
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	filters, err := h.scopeFilters(r)
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.Svc.ListPaginated(ctx, filters, params)
	if err != nil {
		logger.Error("failed to list articles", "error", err.Error(), "request_id", reqID)
		pagination.RecordError("database")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]DTO, 0, len(result.Data))
	for _, item := range result.Data {
		dtos = append(dtos, DTO{
			ID:          item.Article.ID,
			FeedID:      item.FeedID,
			Title:       item.Article.Title,
			URL:         item.Article.URL,
			Summary:     item.Article.Summary,
			Author:      item.Article.Author,
			ImageURL:    item.Article.ImageURL,
			PublishedAt: item.Article.PublishedAt,
			CreatedAt:   item.Article.CreatedAt,
		})
	}

	response := pagination.NewResponse(dtos, result.Pagination)

	pagination.RecordRequest(http.StatusOK, params.Page)
	pagination.RecordDuration("handler", time.Since(start).Seconds())
	pagination.UpdateTotalCount(result.Pagination.Total)

	respond.JSON(w, http.StatusOK, response)
}

func (h ListHandler) scopeFilters(r *http.Request) (repository.ArticleSearchFilters, error) {
	switch h.Scope {
	case ScopeFeed:
		id, err := pathutil.ExtractID(r.URL.Path, "/sources/feeds/")
		if err != nil {
			return repository.ArticleSearchFilters{}, err
		}
		return repository.ArticleSearchFilters{FeedID: &id}, nil
	case ScopeCompany:
		id, err := pathutil.ExtractID(r.URL.Path, "/sources/companies/")
		if err != nil {
			return repository.ArticleSearchFilters{}, err
		}
		return repository.ArticleSearchFilters{CompanyID: &id}, nil
	default:
		return repository.ArticleSearchFilters{}, nil
	}
}
