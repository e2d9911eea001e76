package jobstatus

import (
	"net/http"

	"manifeed/internal/usecase/job"
)

// Register registers the job status read endpoints under /jobs.
func Register(mux *http.ServeMux, svc *job.Service) {
	mux.Handle("GET    /jobs/{job_id}", GetHandler{Svc: svc})
	mux.Handle("GET    /jobs/{job_id}/feeds", ListFeedsHandler{Svc: svc})
}
