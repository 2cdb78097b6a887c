package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"petavatar/internal/blob"
	"petavatar/internal/domain"
)

const uploadGrantTTL = 15 * time.Minute

type uploadURLRequest struct {
	ContentType string `json:"content_type"`
}

type uploadURLResponse struct {
	JobID        string            `json:"job_id"`
	UploadURL    string            `json:"upload_url"`
	UploadFields map[string]string `json:"upload_fields"`
	ExpiresIn    int               `json:"expires_in"`
}

// UploadURL issues an upload grant: a fresh job_id and a presigned upload
// grant scoped to the job's uploads namespace, with the content type and the
// 50 MiB size cap bound into the credential. No job record is created here —
// abandoned uploads must cost nothing in the store.
func (a *App) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req uploadURLRequest
	if r.Body != nil {
		// The body is optional; a bare POST grants a JPEG upload.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if !blob.ContentTypeAllowed(contentType) {
		a.error(w, http.StatusBadRequest, domain.KindUnsupportedFormat,
			"content type must be one of image/jpeg, image/png, image/heic")
		return
	}

	jobID := uuid.NewString()
	key := blob.UploadKey(jobID)

	url, headers, err := a.Bucket.PresignUpload(r.Context(), key, contentType, uploadGrantTTL)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("upload-url: presign failed")
		a.fail(w, err)
		return
	}

	a.json(w, http.StatusOK, uploadURLResponse{
		JobID:        jobID,
		UploadURL:    url,
		UploadFields: headers,
		ExpiresIn:    int(uploadGrantTTL.Seconds()),
	})
}
