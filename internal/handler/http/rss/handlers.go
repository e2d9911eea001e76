package rss

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"manifeed/internal/domain/entity"
	"manifeed/internal/handler/http/pathutil"
	"manifeed/internal/handler/http/respond"
	"manifeed/internal/usecase/catalog"
	"manifeed/internal/usecase/job"
)

// ListHandler serves the full company/feed catalog.
type ListHandler struct{ Svc *catalog.Service }

// ServeHTTP returns every company with its feeds.
// @Summary      List catalog
// @Tags         rss
// @Security     BearerAuth
// @Produce      json
// @Success      200 {array} CompanyDTO
// @Router       /rss [get]
func (h ListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.List(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]CompanyDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toCompanyDTO(e))
	}
	respond.JSON(w, http.StatusOK, dtos)
}

func toCompanyDTO(e catalog.Entry) CompanyDTO {
	feeds := make([]FeedDTO, 0, len(e.Feeds))
	for _, f := range e.Feeds {
		feeds = append(feeds, FeedDTO{
			ID: f.ID, URL: f.URL, Section: f.Section, Enabled: f.Enabled,
			TrustScore: f.TrustScore, Tags: f.Tags, Fetchprotection: f.Fetchprotection,
		})
	}
	dto := CompanyDTO{Feeds: feeds}
	if e.Company != nil {
		dto.ID = e.Company.ID
		dto.Name = e.Company.Name
		dto.Host = e.Company.Host
		dto.IconURL = e.Company.IconURL
		dto.Country = e.Company.Country
		dto.Language = e.Company.Language
		dto.Fetchprotection = e.Company.Fetchprotection
		dto.Enabled = e.Company.Enabled
	}
	return dto
}

// SetFeedEnabledHandler toggles one feed's enabled flag.
type SetFeedEnabledHandler struct{ Svc *catalog.Service }

// ServeHTTP handles PATCH /rss/feeds/{id}/enabled.
// @Summary      Set feed enabled
// @Tags         rss
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Feed ID"
// @Success      204
// @Router       /rss/feeds/{id}/enabled [patch]
func (h SetFeedEnabledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractIDWithSuffix(r.URL.Path, "/rss/feeds/", "/enabled")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	var body enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if err := h.Svc.SetFeedEnabled(r.Context(), id, body.Enabled); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCompanyEnabledHandler toggles one company's enabled flag.
type SetCompanyEnabledHandler struct{ Svc *catalog.Service }

// ServeHTTP handles PATCH /rss/companies/{id}/enabled.
// @Summary      Set company enabled
// @Tags         rss
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Company ID"
// @Success      204
// @Router       /rss/companies/{id}/enabled [patch]
func (h SetCompanyEnabledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractIDWithSuffix(r.URL.Path, "/rss/companies/", "/enabled")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	var body enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if err := h.Svc.SetCompanyEnabled(r.Context(), id, body.Enabled); err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncHandler pulls the catalog repository and applies any changes.
type SyncHandler struct{ Svc *catalog.Service }

// ServeHTTP handles POST /rss/sync?force=bool.
// @Summary      Sync catalog
// @Tags         rss
// @Security     BearerAuth
// @Produce      json
// @Param        force query bool false "force re-apply even if up to date"
// @Success      200 {object} syncResponse
// @Router       /rss/sync [post]
func (h SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	result, err := h.Svc.Sync(r.Context(), force)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, syncResponse{
		RepositoryAction: string(result.RepositoryAction),
		ProcessedFiles:   result.ProcessedFiles,
		ProcessedFeeds:   result.ProcessedFeeds,
		CreatedCompanies: result.CreatedCompanies,
		CreatedFeeds:     result.CreatedFeeds,
		UpdatedFeeds:     result.UpdatedFeeds,
	})
}

// FeedsCheckHandler enqueues a non-ingesting freshness check job.
type FeedsCheckHandler struct{ Svc *job.Service }

// ServeHTTP handles POST /rss/feeds/check?feed_ids=1,2,3.
// @Summary      Check feeds
// @Tags         rss
// @Security     BearerAuth
// @Produce      json
// @Param        feed_ids query string false "comma-separated feed IDs, all enabled feeds if omitted"
// @Success      200 {object} feedCheckResponse
// @Router       /rss/feeds/check [post]
func (h FeedsCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feedIDs, err := parseFeedIDs(r.URL.Query().Get("feed_ids"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	j, err := h.Svc.EnqueueFeedCheck(r.Context(), feedIDs)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, feedCheckResponse{JobID: j.JobID, FeedCount: j.FeedCount, Status: string(j.Status)})
}

// SourcesIngestHandler enqueues an ingesting job restricted to enabled feeds.
type SourcesIngestHandler struct{ Svc *job.Service }

// ServeHTTP handles POST /sources/ingest?feed_ids=1,2,3.
// @Summary      Ingest sources
// @Tags         rss
// @Security     BearerAuth
// @Produce      json
// @Param        feed_ids query string false "comma-separated feed IDs, all enabled feeds if omitted"
// @Success      200 {object} feedCheckResponse
// @Router       /sources/ingest [post]
func (h SourcesIngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	feedIDs, err := parseFeedIDs(r.URL.Query().Get("feed_ids"))
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	j, err := h.Svc.EnqueueSourcesIngest(r.Context(), feedIDs)
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, feedCheckResponse{JobID: j.JobID, FeedCount: j.FeedCount, Status: string(j.Status)})
}

func parseFeedIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid feed_ids parameter")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func statusFor(err error) int {
	if errors.Is(err, entity.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
