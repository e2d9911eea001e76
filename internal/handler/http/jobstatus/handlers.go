// Package jobstatus provides HTTP handlers for the job status read
// endpoints under /jobs.
package jobstatus

import (
	"errors"
	"net/http"
	"time"

	"manifeed/internal/domain/entity"
	"manifeed/internal/handler/http/respond"
	"manifeed/internal/usecase/job"
)

// StatusDTO is the JSON representation of a job's aggregate status.
type StatusDTO struct {
	JobID       string    `json:"job_id"`
	Ingest      bool      `json:"ingest"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
	FeedCount   int       `json:"feed_count"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updated_at"`
	Success     int       `json:"success"`
	NotModified int       `json:"not_modified"`
	Error       int       `json:"error"`
}

// FeedDTO is one feed's result within a job.
type FeedDTO struct {
	FeedID int64  `json:"feed_id"`
	Status string `json:"status"`
}

// GetHandler serves GET /jobs/{job_id}.
type GetHandler struct{ Svc *job.Service }

// ServeHTTP returns a job's aggregate status.
// @Summary      Get job status
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        job_id path string true "Job ID"
// @Success      200 {object} StatusDTO
// @Failure      404 {object} map[string]string
// @Router       /jobs/{job_id} [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid job id"))
		return
	}
	status, err := h.Svc.GetStatus(r.Context(), jobID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	respond.JSON(w, http.StatusOK, StatusDTO{
		JobID: status.Job.JobID, Ingest: status.Job.Ingest, RequestedBy: status.Job.RequestedBy,
		RequestedAt: status.Job.RequestedAt, FeedCount: status.Job.FeedCount, Status: string(status.Job.Status),
		UpdatedAt: status.Job.UpdatedAt, Success: status.Success, NotModified: status.NotMod, Error: status.Error,
	})
}

// ListFeedsHandler serves GET /jobs/{job_id}/feeds.
type ListFeedsHandler struct{ Svc *job.Service }

// ServeHTTP returns a job's per-feed results.
// @Summary      List job feeds
// @Tags         jobs
// @Security     BearerAuth
// @Produce      json
// @Param        job_id path string true "Job ID"
// @Success      200 {array} FeedDTO
// @Failure      404 {object} map[string]string
// @Router       /jobs/{job_id}/feeds [get]
func (h ListFeedsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid job id"))
		return
	}
	feeds, err := h.Svc.ListFeeds(r.Context(), jobID)
	if err != nil {
		respond.SafeError(w, statusFor(err), err)
		return
	}
	dtos := make([]FeedDTO, 0, len(feeds))
	for _, f := range feeds {
		dtos = append(dtos, FeedDTO{FeedID: f.FeedID, Status: string(f.Status)})
	}
	respond.JSON(w, http.StatusOK, dtos)
}

func statusFor(err error) int {
	if errors.Is(err, entity.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
