package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"petavatar/internal/blob"
	"petavatar/internal/domain"
)

const resultURLTTL = time.Hour

type resultResponse struct {
	JobID       string                 `json:"job_id"`
	AvatarURL   string                 `json:"avatar_url"`
	Identity    domain.IdentityPackage `json:"identity"`
	PetAnalysis domain.PetAnalysis     `json:"pet_analysis"`
}

// Result returns the finished artifact bundle for a completed job. Any
// other status, including failed, is a conflict: the caller asked for a
// result that does not (or will never) exist at this URL.
func (a *App) Result(w http.ResponseWriter, r *http.Request) {
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
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("result: lookup failed")
		a.fail(w, err)
		return
	}

	if job.Status != domain.JobStatusCompleted {
		a.error(w, http.StatusConflict, domain.KindConflict,
			fmt.Sprintf("job is %s, result not available", job.Status))
		return
	}
	if job.ResultLocation == "" || job.ResultPayload == nil {
		a.Logger.Error().Str("job_id", jobID).Msg("result: completed job missing result fields")
		a.error(w, http.StatusInternalServerError, domain.KindInternal, "internal server error")
		return
	}

	// The result location is normally a bare object key; accept a full
	// s3:// reference too.
	key := job.ResultLocation
	if strings.HasPrefix(key, "s3://") {
		var err error
		if _, key, err = blob.ParseS3URI(job.ResultLocation); err != nil {
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("result: malformed result location")
			a.error(w, http.StatusInternalServerError, domain.KindInternal, "internal server error")
			return
		}
	}

	avatarURL, err := a.Bucket.PresignGet(r.Context(), key, resultURLTTL)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("result: presign failed")
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusOK, resultResponse{
		JobID:       job.ID,
		AvatarURL:   avatarURL,
		Identity:    job.ResultPayload.Identity,
		PetAnalysis: job.ResultPayload.PetAnalysis,
	})
}
