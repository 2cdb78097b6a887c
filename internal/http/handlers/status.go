package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"petavatar/internal/domain"
)

type statusResponse struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// Status is the read-only projection of a job's lifecycle position.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "missing job_id parameter")
		return
	}

	job, err := a.Store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, domain.KindNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("status: lookup failed")
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusOK, statusResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
	})
}
