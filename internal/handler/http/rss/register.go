package rss

import (
	"net/http"

	"manifeed/internal/usecase/catalog"
	"manifeed/internal/usecase/job"
)

// Register registers the catalog and job-trigger endpoints under /rss, plus
// /sources/ingest which shares the same job-enqueue use case.
func Register(mux *http.ServeMux, catalogSvc *catalog.Service, jobSvc *job.Service, imgDir string) {
	mux.Handle("GET    /rss", ListHandler{Svc: catalogSvc})
	mux.Handle("PATCH  /rss/feeds/", SetFeedEnabledHandler{Svc: catalogSvc})
	mux.Handle("PATCH  /rss/companies/", SetCompanyEnabledHandler{Svc: catalogSvc})
	mux.Handle("POST   /rss/sync", SyncHandler{Svc: catalogSvc})
	mux.Handle("POST   /rss/feeds/check", FeedsCheckHandler{Svc: jobSvc})
	mux.Handle("POST   /sources/ingest", SourcesIngestHandler{Svc: jobSvc})
	mux.Handle("GET    /rss/img/", ImgHandler{Dir: imgDir})
}
