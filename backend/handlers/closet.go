// ABOUTME: Closet handler returning the session user's clothing items
// ABOUTME: Resolves the user from the token, then reads the full user record from the backend

package handlers

import (
	"net/http"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// ClothingItems returns the clothing_items array of the session user.
func (h *Handler) ClothingItems(w http.ResponseWriter, r *http.Request) {
	token := services.TokenFromRequest(r)

	me, err := h.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	user, err := h.backend.GetUser(r.Context(), token, me.ID)
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	items := user.ClothingItems
	if items == nil {
		items = []models.ClothingItem{}
	}
	h.writeJSON(w, http.StatusOK, items)
}
