// ABOUTME: Fixed-window rate limiting for login, write and read routes
// ABOUTME: Counts requests per client IP or per hashed session token, in memory or in Redis

package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fitcheck/fitcheck/backend/services"
)

// Limiter decides whether one more request for key fits in the current window.
// When it does not, the returned duration is the time until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

type window struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is an in-process Limiter.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	created int
}

// NewRateLimiter allows limit requests per key in each period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	win, ok := rl.windows[key]

	// The instant a window expires already belongs to the next one
	if !ok || !now.Before(win.expiresAt) {
		rl.windows[key] = &window{count: 1, expiresAt: now.Add(rl.period)}

		rl.created++
		if rl.created >= 100 {
			rl.sweep(now)
			rl.created = 0
		}
		return true, 0
	}

	if win.count < rl.limit {
		win.count++
		return true, 0
	}
	return false, win.expiresAt.Sub(now)
}

// sweep drops expired windows. Callers hold rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for k, win := range rl.windows {
		if !now.Before(win.expiresAt) {
			delete(rl.windows, k)
		}
	}
}

// ClientIP extracts the client IP from X-Forwarded-For (leftmost) or RemoteAddr.
// X-Forwarded-For is trusted, so the relay must sit behind a proxy that sets it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// TokenOrIP keys requests by a hash of the session token, so a user's quota
// follows them across addresses. Falls back to ClientIP without a token.
func TokenOrIP(r *http.Request) string {
	if token := services.TokenFromRequest(r); token != "" {
		sum := sha256.Sum256([]byte(token))
		return "session:" + hex.EncodeToString(sum[:8])
	}
	return ClientIP(r)
}

// RateLimit returns middleware enforcing limiter per keyFunc(r). A nil limiter
// disables it, and requests whose key is empty pass through.
func RateLimit(limiter Limiter, keyFunc func(*http.Request) string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if limiter == nil || keyFunc == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(r.Context(), key)
			if allowed {
				next(w, r)
				return
			}

			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded",
				"request_id", RequestID(r.Context()),
				"key", key,
				"path", sanitizePath(r.URL.Path),
				"retry_after", retrySeconds)

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			writeJSONError(w, "Rate limit exceeded", http.StatusTooManyRequests)
		}
	}
}
