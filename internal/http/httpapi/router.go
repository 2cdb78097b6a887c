package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"petavatar/internal/http/handlers"
	"petavatar/internal/middleware"
	"petavatar/internal/secrets"
)

// RouterOptions carries the cross-cutting pieces the router wires around the
// handlers: authentication and per-client rate limiting.
type RouterOptions struct {
	Secrets         secrets.Resolver
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS,
	)

	// Health stays open so load balancers can probe without credentials.
	r.Get("/v1/healthz", app.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(opts.Secrets, app.Logger))
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}

		r.Post("/v1/upload-url", app.UploadURL)
		r.Post("/v1/process", app.Process)
		r.Get("/v1/status/{job_id}", app.Status)
		r.Get("/v1/result/{job_id}", app.Result)
	})

	return r
}
