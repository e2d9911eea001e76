package rss

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"manifeed/internal/handler/http/respond"
)

var errInvalidImgPath = errors.New("invalid icon path")

// ImgHandler serves company icon SVGs from a directory on disk, rejecting
// any path that escapes it or names a non-SVG file.
type ImgHandler struct {
	// Dir is the directory icons are served from.
	Dir string
}

// ServeHTTP handles GET /rss/img/{path}.
// @Summary      Get company icon
// @Tags         rss
// @Produce      image/svg+xml
// @Param        path path string true "icon file name"
// @Success      200 {file} file
// @Failure      400 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /rss/img/{path} [get]
func (h ImgHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/rss/img/")
	if rel == "" || strings.Contains(rel, "..") || strings.HasPrefix(rel, "/") {
		respond.SafeError(w, http.StatusBadRequest, errInvalidImgPath)
		return
	}
	if strings.ToLower(filepath.Ext(rel)) != ".svg" {
		respond.SafeError(w, http.StatusBadRequest, errInvalidImgPath)
		return
	}

	full := filepath.Join(h.Dir, filepath.Clean("/"+rel))
	if !strings.HasPrefix(full, filepath.Clean(h.Dir)+string(filepath.Separator)) {
		respond.SafeError(w, http.StatusBadRequest, errInvalidImgPath)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, full)
}
