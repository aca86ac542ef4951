// ABOUTME: JSON error envelope for middleware and panic recovery
// ABOUTME: Writes the same {error, details, code} envelope as the handlers

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/fitcheck/fitcheck/backend/models"
)

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Recover turns a handler panic into a 500 JSON error. http.ErrAbortHandler
// is re-raised so net/http can abort the connection as asked.
func Recover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			slog.Error("Handler panicked",
				"request_id", RequestID(r.Context()),
				"method", r.Method,
				"path", sanitizePath(r.URL.Path),
				"panic", v,
				"stack", string(debug.Stack()))
			writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}()
		next(w, r)
	}
}
