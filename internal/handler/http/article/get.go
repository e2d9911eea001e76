package article

import (
	"errors"
	"net/http"

	"manifeed/internal/handler/http/pathutil"
	"manifeed/internal/handler/http/respond"
	artUC "manifeed/internal/usecase/article"
)

type GetHandler struct{ Svc artUC.Service }

// ServeHTTP returns a single article by id.
// @Summary      Get article
// @Tags         sources
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Article ID"
// @Success      200 {object} DTO
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /sources/{id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/sources/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	a, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, artUC.ErrInvalidArticleID):
			code = http.StatusBadRequest
		case errors.Is(err, artUC.ErrArticleNotFound):
			code = http.StatusNotFound
		}
		respond.SafeError(w, code, err)
		return
	}

	respond.JSON(w, http.StatusOK, DTO{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Summary:     a.Summary,
		Author:      a.Author,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt,
		CreatedAt:   a.CreatedAt,
	})
}
