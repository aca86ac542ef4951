// ABOUTME: Assembles the route table and middleware into a ServeMux
// ABOUTME: Logging wraps panic recovery, CORS, then rate limiting by tier and the session guard

package handlers

import (
	"net/http"

	"github.com/fitcheck/fitcheck/backend/middleware"
)

// NewServeMux registers every route of h. limiters maps a rate limit tier to
// its limiter; a nil map disables rate limiting.
func NewServeMux(h *Handler, corsOrigins []string, limiters map[string]middleware.Limiter) *http.ServeMux {
	mux := http.NewServeMux()
	cors := middleware.CORS(corsOrigins)

	for _, route := range h.Routes() {
		chain := []middleware.Middleware{middleware.LogRequest, middleware.Recover, cors}

		if limiter, ok := limiters[route.Limit]; ok {
			keyFunc := middleware.ClientIP
			if route.Auth {
				keyFunc = middleware.TokenOrIP
			}
			chain = append(chain, middleware.RateLimit(limiter, keyFunc))
		}
		if route.Auth {
			chain = append(chain, middleware.RequireSession)
		}

		mux.HandleFunc(route.Pattern(), middleware.Chain(route.Handler, chain...))
	}
	return mux
}
