// ABOUTME: Outfit wear history (OOTD) handlers
// ABOUTME: Joins history entries with their outfits in parallel and logs new wears

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// outfitFetchLimit bounds concurrent outfit lookups per request.
const outfitFetchLimit = 8

// WearHistory returns history entries joined with their outfits. Entries
// whose outfit cannot be fetched are left out; order is preserved.
func (h *Handler) WearHistory(w http.ResponseWriter, r *http.Request) {
	token := services.TokenFromRequest(r)

	entries, err := h.backend.ListWearHistory(r.Context(), token)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	outfits := h.fetchOutfits(r.Context(), token, entries)

	items := make([]models.WearHistoryItem, 0, len(entries))
	for _, e := range entries {
		outfit, ok := outfits[e.OutfitID]
		if !ok {
			continue
		}
		items = append(items, models.WearHistoryItem{WearHistoryEntry: e, Outfit: *outfit})
	}

	h.writeJSON(w, http.StatusOK, items)
}

// fetchOutfits loads each distinct outfit once. Failures are logged and
// omitted from the result.
func (h *Handler) fetchOutfits(ctx context.Context, token string, entries []models.WearHistoryEntry) map[int]*models.Outfit {
	var (
		mu      sync.Mutex
		outfits = make(map[int]*models.Outfit)
		seen    = make(map[int]bool)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(outfitFetchLimit)

	for _, e := range entries {
		id := e.OutfitID
		if seen[id] {
			continue
		}
		seen[id] = true

		g.Go(func() error {
			outfit, err := h.backend.GetOutfit(gctx, token, id)
			if err != nil {
				slog.Warn("Dropping wear history entry", "outfit_id", id, "error", err)
				return nil
			}
			mu.Lock()
			outfits[id] = outfit
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return outfits
}

// LogOutfitWorn records that an outfit was worn, today unless a date is given.
func (h *Handler) LogOutfitWorn(w http.ResponseWriter, r *http.Request) {
	outfitID, err := services.ParseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, "Invalid outfit id", http.StatusBadRequest)
		return
	}

	var req models.LogWornRequest
	if err := h.decodeJSON(w, r, &req, true); err != nil {
		h.writeErrorDetails(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := services.Validate(req); err != nil {
		h.writeErrorDetails(w, "Date must be YYYY-MM-DD", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format(time.DateOnly)
	}

	created, err := h.backend.LogOutfitWorn(r.Context(), services.TokenFromRequest(r), models.WearHistoryEntry{
		OutfitID: outfitID,
		WornDate: req.Date,
	})
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}
