package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"petavatar/internal/blob"
	"petavatar/internal/domain"
	"petavatar/internal/queue"
)

type processRequest struct {
	S3URI string `json:"s3_uri"`
}

type processResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Process validates a submitted source reference, upserts the job record in
// status queued and enqueues a processing message. All validation happens
// before any store write.
func (a *App) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "invalid request body")
		return
	}
	if req.S3URI == "" {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "missing s3_uri parameter")
		return
	}

	bucketName, key, err := blob.ParseS3URI(req.S3URI)
	if err != nil {
		a.fail(w, err)
		return
	}
	if bucketName != a.UploadBucket {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "s3_uri references an unexpected bucket")
		return
	}
	jobID, ok := blob.JobIDFromKey(key)
	if !ok {
		a.error(w, http.StatusBadRequest, domain.KindValidation, "s3_uri key is outside the uploads namespace")
		return
	}

	info, err := a.Bucket.Head(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || domain.KindOf(err) == domain.KindNotFound {
			a.error(w, http.StatusNotFound, domain.KindNotFound, "referenced object does not exist")
			return
		}
		a.Logger.Error().Err(err).Str("key", key).Msg("process: head failed")
		a.fail(w, err)
		return
	}
	if !blob.ContentTypeAllowed(info.ContentType) {
		a.error(w, http.StatusBadRequest, domain.KindUnsupportedFormat,
			"object content type is not an accepted image format")
		return
	}
	if info.Size > blob.MaxUploadBytes {
		a.error(w, http.StatusBadRequest, domain.KindPayloadTooLarge,
			"object exceeds the 50 MiB upload limit")
		return
	}

	if _, err := a.Store.UpsertQueued(r.Context(), jobID, key); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("process: upsert failed")
		a.fail(w, err)
		return
	}
	if err := a.Queue.Enqueue(r.Context(), queue.ProcessingMessage{
		JobID:          jobID,
		SourceLocation: key,
		Timestamp:      time.Now().UTC(),
	}); err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("process: enqueue failed")
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusOK, processResponse{JobID: jobID, Status: string(domain.JobStatusQueued)})
}
