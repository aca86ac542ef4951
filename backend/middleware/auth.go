// ABOUTME: Session requirement middleware for routes that act on behalf of a user
// ABOUTME: Rejects requests without a login token and exposes the token to handlers

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/fitcheck/fitcheck/backend/services"
)

// RequireSession rejects requests that carry neither a login_token cookie
// nor a bearer token. The token is not validated here; the backend does that
// on the forwarded call.
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := services.TokenFromRequest(r)
		if token == "" {
			slog.Debug("Rejected request without session",
				"request_id", RequestID(r.Context()),
				"path", sanitizePath(r.URL.Path))
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(WithToken(r.Context(), token)))
	}
}

// WithToken returns a context carrying the session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token returns the session token stored by RequireSession.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
