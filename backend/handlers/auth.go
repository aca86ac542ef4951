// ABOUTME: Session handlers for the login_token cookie
// ABOUTME: Login forwards credentials to the backend, logout clears the cookie, me resolves the user

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// Login forwards credentials to the backend and stores the returned token in
// an httpOnly cookie. The token never appears in the response body.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := h.decodeJSON(w, r, &req, false); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := services.Validate(req); err != nil {
		h.writeErrorDetails(w, "Email and password are required", err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.backend.Login(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	if resp.User == nil || resp.User.LoginToken == "" {
		msg := resp.Error
		if msg == "" {
			msg = "Invalid credentials"
		}
		slog.Warn("Login rejected by backend",
			"request_id", requestID(r),
			"email", services.SanitizeForLog(req.Email))
		h.writeJSON(w, http.StatusUnauthorized, models.LoginResponse{Success: false, Error: msg})
		return
	}

	http.SetCookie(w, h.sessions.SessionCookie(resp.User.LoginToken))

	user := resp.User.User
	h.writeJSON(w, http.StatusOK, models.LoginResponse{Success: true, User: &user})
}

// Logout always succeeds and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := services.TokenFromRequest(r); token != "" {
		h.sessions.Forget(r.Context(), token)
	}

	http.SetCookie(w, h.sessions.ClearCookie())
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Me returns the user owning the session token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	token := services.TokenFromRequest(r)
	if token == "" {
		h.writeError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	user, err := h.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		var be *services.BackendError
		if errors.As(err, &be) && be.Unauthorized() {
			h.writeError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		if errors.Is(err, services.ErrBackendNotConfigured) {
			h.writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		slog.Error("Failed to resolve current user", "request_id", requestID(r), "error", err)
		h.writeErrorDetails(w, "Failed to fetch user", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, models.MeResponse{User: *user})
}
