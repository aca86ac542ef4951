// ABOUTME: Health handler reporting which upstream integrations are wired
// ABOUTME: Each integration is reported as ok or not_configured

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fitcheck/fitcheck/backend/models"
)

const (
	statusOK            = "ok"
	statusNotConfigured = "not_configured"
	statusError         = "error"
)

// Health reports configuration status. It makes no upstream calls except a
// cache round-trip.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Backend: configured(h.backend.Configured()),
		TryOn:   configured(h.tryon.Configured()),
		Weather: configured(h.weather.Configured()),
		Storage: configured(h.objects.Configured()),
		Cache:   h.cacheStatus(r.Context()),
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) cacheStatus(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.store.Set(ctx, "health:probe", time.Now().Unix(), time.Minute); err != nil {
		slog.Warn("Cache health probe failed", "error", err)
		return statusError
	}
	return statusOK
}

func configured(ok bool) string {
	if ok {
		return statusOK
	}
	return statusNotConfigured
}
