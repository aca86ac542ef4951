// ABOUTME: HTTP handlers for the FitCheck relay API
// ABOUTME: Holds shared clients and the JSON response and error helpers

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/middleware"
	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
	"github.com/fitcheck/fitcheck/backend/storage"
)

const (
	maxRequestBodySize = 1 << 20  // 1 MiB for JSON bodies
	maxUploadSize      = 32 << 20 // 32 MiB for multipart uploads
)

type Handler struct {
	cfg      *config.Config
	store    cache.Store
	backend  *services.BackendClient
	sessions *services.SessionService
	tryon    *services.TryOnClient
	weather  *services.WeatherClient
	objects  *storage.ObjectStore
	relay    *Relay
}

// NewHandler builds the handler and its service clients from cfg. A nil cfg
// yields a handler with every integration unconfigured.
func NewHandler(cfg *config.Config, store cache.Store) *Handler {
	if cfg == nil {
		cfg = &config.Config{}
	}
	if store == nil {
		store = cache.New(5 * time.Minute)
	}

	backend := services.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendAllProxy)

	return &Handler{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		sessions: services.NewSessionService(store, backend, cfg.CookieSecure),
		tryon: services.NewTryOnClient(cfg.TryOnAPIURL, cfg.TryOnAPIKey,
			cfg.TryOnPollInterval, cfg.TryOnMaxAttempts, cfg.TryOnTimeout),
		weather: services.NewWeatherClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey,
			cfg.WeatherDefaultLat, cfg.WeatherDefaultLon, store),
		relay: NewRelay(cfg.BackendURL, backend.HTTPClient(), DefaultRelayRoutes()),
	}
}

// SetObjectStore attaches try-on photo storage.
func (h *Handler) SetObjectStore(s *storage.ObjectStore) {
	h.objects = s
}

// Relay returns the catch-all backend relay.
func (h *Handler) Relay() *Relay {
	return h.relay
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{Error: message, Code: code})
}

func (h *Handler) writeErrorDetails(w http.ResponseWriter, message, details string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{Error: message, Details: details, Code: code})
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeBackendError maps a BackendClient failure onto the response. Backend
// statuses are relayed; configuration and network failures become 500s.
func (h *Handler) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var be *services.BackendError
	switch {
	case errors.Is(err, services.ErrBackendNotConfigured):
		h.writeError(w, services.ErrBackendNotConfigured.Error(), http.StatusInternalServerError)
	case errors.As(err, &be):
		slog.Warn("Backend returned error",
			"request_id", requestID(r),
			"path", services.SanitizeForLog(r.URL.Path),
			"status", be.Status)
		writeUpstreamBody(w, be.Status, be.Body)
	default:
		slog.Error("Backend request failed",
			"request_id", requestID(r),
			"path", services.SanitizeForLog(r.URL.Path),
			"error", err)
		h.writeErrorDetails(w, "Failed to reach backend", err.Error(), http.StatusInternalServerError)
	}
}

// writeUpstreamBody forwards an upstream body with its status: JSON verbatim,
// anything else wrapped in an error envelope.
func writeUpstreamBody(w http.ResponseWriter, status int, body []byte) {
	if len(body) == 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if json.Valid(body) {
		w.WriteHeader(status)
		w.Write(body)
		return
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error:   http.StatusText(status),
		Details: truncateDetails(string(body)),
		Code:    status,
	})
}

const maxDetails = 1024

func truncateDetails(s string) string {
	if len(s) <= maxDetails {
		return s
	}
	return s[:maxDetails]
}

func requestID(r *http.Request) string {
	return middleware.RequestID(r.Context())
}
