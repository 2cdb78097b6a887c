package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"petavatar/internal/domain"
	"petavatar/internal/secrets"
)

const apiKeyHeader = "x-api-key"

// APIKey enforces the x-api-key credential on every request. The expected
// value is resolved per request so key rotation needs no restart. Resolution
// failures fail closed: the check is never bypassed.
func APIKey(resolver secrets.Resolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(apiKeyHeader)
			if presented == "" {
				unauthorized(w, "missing api key")
				return
			}
			expected, err := resolver.APIKey(r.Context())
			if err != nil {
				logger.Error().Err(err).Msg("auth: api key resolution failed")
				unauthorized(w, "invalid api key")
				return
			}
			if expected == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      message,
		"error_type": string(domain.KindAuthentication),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
