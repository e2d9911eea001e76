package article

import (
	"log/slog"
	"net/http"

	"manifeed/internal/common/pagination"
	artUC "manifeed/internal/usecase/article"
)

// Register registers the read-only article endpoints under /sources.
func Register(mux *http.ServeMux, svc artUC.Service, paginationCfg pagination.Config, logger *slog.Logger) {
	mux.Handle("GET    /sources", ListHandler{
		Svc: svc, PaginationCfg: paginationCfg, Logger: logger, Scope: ScopeAll,
	})
	mux.Handle("GET    /sources/feeds/", ListHandler{
		Svc: svc, PaginationCfg: paginationCfg, Logger: logger, Scope: ScopeFeed,
	})
	mux.Handle("GET    /sources/companies/", ListHandler{
		Svc: svc, PaginationCfg: paginationCfg, Logger: logger, Scope: ScopeCompany,
	})
	mux.Handle("GET    /sources/", GetHandler{svc})
}
