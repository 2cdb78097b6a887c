package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"petavatar/internal/blob"
	"petavatar/internal/domain"
	"petavatar/internal/infra"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
)

// App bundles the collaborators the endpoint handlers need. Everything is an
// interface so tests substitute in-memory fakes.
type App struct {
	Store  jobstore.Store
	Queue  *queue.ProcessingQueue
	Bucket blob.Bucket
	Logger infra.Logger

	// UploadBucket is the bucket name clients are expected to reference in
	// s3:// URIs submitted to Process.
	UploadBucket string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the standard error body {error, error_type, timestamp}.
func (a *App) error(w http.ResponseWriter, code int, kind domain.Kind, message string) {
	a.json(w, code, map[string]any{
		"error":      message,
		"error_type": string(kind),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// fail maps a classified error onto the HTTP taxonomy. Unclassified errors
// surface as 500 without leaking internals.
func (a *App) fail(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	message := "internal error"
	var derr *domain.Error
	if errors.As(err, &derr) && kind != domain.KindInternal {
		message = derr.Message
	}
	a.error(w, kind.HTTPStatus(), kind, message)
}

// Health reports liveness; it sits outside the authenticated routes.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
