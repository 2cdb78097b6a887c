package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"petavatar/internal/domain"
)

// window is one caller's fixed-window counter.
type window struct {
	count   int
	resetAt time.Time
}

// limiter tracks per-caller windows. Expired windows are pruned lazily so the
// map does not grow with every caller ever seen.
type limiter struct {
	mu        sync.Mutex
	windows   map[string]*window
	limit     int
	per       time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func newLimiter(limit int, per time.Duration) *limiter {
	return &limiter{
		windows: make(map[string]*window),
		limit:   limit,
		per:     per,
		now:     time.Now,
	}
}

// allow counts a request against key. When the window is exhausted it returns
// false along with the time until the window resets.
func (l *limiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= l.per {
		for k, win := range l.windows {
			if now.After(win.resetAt) {
				delete(l.windows, k)
			}
		}
		l.lastPrune = now
	}

	win, ok := l.windows[key]
	if !ok || now.After(win.resetAt) {
		win = &window{resetAt: now.Add(l.per)}
		l.windows[key] = win
	}
	if win.count >= l.limit {
		return false, win.resetAt.Sub(now)
	}
	win.count++
	return true, 0
}

// RateLimit enforces a fixed-window request budget per caller. Requests are
// keyed on the presented api key, so every credential gets its own budget no
// matter how many addresses it calls from; requests without a credential fall
// back to the client address.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(limit, per)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryIn := l.allow(callerKey(r))
			if !ok {
				tooManyRequests(w, retryIn)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey prefixes the key with its source so a client address can never
// collide with a credential of the same spelling.
func callerKey(r *http.Request) string {
	if key := r.Header.Get(apiKeyHeader); key != "" {
		return "key:" + key
	}
	return "ip:" + clientIP(r)
}

func tooManyRequests(w http.ResponseWriter, retryIn time.Duration) {
	seconds := int(retryIn.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domain.KindRateLimit.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":      "rate limit exceeded",
		"error_type": string(domain.KindRateLimit),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// clientIP prefers the first valid X-Forwarded-For hop, then the connection's
// remote address.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			ip := strings.TrimSpace(part)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if net.ParseIP(host) != nil {
			return host
		}
	}
	return r.RemoteAddr
}
