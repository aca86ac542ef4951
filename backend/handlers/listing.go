// ABOUTME: Listing handlers: create a multi-platform listing, edit one, fetch the eBay consent URL
// ABOUTME: Runs the listing workflow against the backend on behalf of the session user

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fitcheck/fitcheck/backend/listing"
	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// CreateListing runs the whole workflow for {draft, platforms}.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	token := services.TokenFromRequest(r)

	var req models.CreateListingRequest
	if err := h.decodeJSON(w, r, &req, false); err != nil {
		h.writeErrorDetails(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.sessions.CurrentUser(r.Context(), token)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	poster := listing.NewBackendPoster(h.backend, token, h.cfg.ListingWebsiteLink, h.cfg.EbayItemURL)
	wf := listing.NewWorkflow(poster, listing.Options{
		EbayFallback:  h.cfg.ListingEbayFallback,
		RedirectDelay: h.cfg.ListingRedirectDelay,
	})

	if err := wf.SubmitForm(req.Draft); err != nil {
		h.writeErrorDetails(w, "Invalid listing", err.Error(), http.StatusBadRequest)
		return
	}

	if err := wf.SelectPlatforms(r.Context(), user.ID, req.Platforms); err != nil {
		switch {
		case errors.Is(err, listing.ErrNoPlatforms),
			errors.Is(err, listing.ErrUnknownPlatform),
			errors.Is(err, listing.ErrEbayNotAuthorized),
			errors.Is(err, listing.ErrEbayDetailsRequired):
			h.writeError(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("eBay authorization check failed", "request_id", requestID(r), "error", err)
			h.writeErrorDetails(w, "Failed to check eBay authorization", err.Error(), http.StatusBadGateway)
		}
		return
	}

	outcome, err := wf.Post(r.Context())
	if err != nil {
		if outcome == nil {
			h.writeErrorDetails(w, "Failed to post listing", err.Error(), http.StatusInternalServerError)
			return
		}
		slog.Warn("Listing run ended in error",
			"request_id", requestID(r),
			"clothing_item_id", req.Draft.ClothingItemID,
			"error", err)
		h.writeJSON(w, http.StatusBadGateway, outcome)
		return
	}

	slog.Info("Listing posted",
		"request_id", requestID(r),
		"user_id", user.ID,
		"clothing_item_id", req.Draft.ClothingItemID,
		"platforms", len(outcome.Platforms))
	h.writeJSON(w, http.StatusOK, outcome)
}

// UpdateListing edits the local record of a clothing item and its Facebook
// catalog entry.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	token := services.TokenFromRequest(r)

	itemID, err := services.ParseID(r.PathValue("clothing_item_id"))
	if err != nil {
		h.writeError(w, "Invalid clothing item id", http.StatusBadRequest)
		return
	}

	var req models.UpdateListingRequest
	if err := h.decodeJSON(w, r, &req, false); err != nil {
		h.writeErrorDetails(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if err := services.Validate(req); err != nil {
		h.writeErrorDetails(w, "Invalid listing update", err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.backend.UpdateResaleListing(r.Context(), token, itemID, models.ResaleListingUpdate{
		Price:  req.Price,
		Status: req.Status,
	})
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	item := models.FacebookCatalogItem{
		Name:        req.Name,
		Currency:    req.Currency,
		ImageURL:    req.ImageURL,
		RetailerID:  fmt.Sprintf("fitcheck-%d", itemID),
		Description: req.Description,
		WebsiteLink: h.cfg.ListingWebsiteLink,
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if err := h.backend.UpdateFacebookCatalog(r.Context(), token, item); err != nil {
		h.writeBackendError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// EbayAuthURL returns the eBay consent URL for the session user.
func (h *Handler) EbayAuthURL(w http.ResponseWriter, r *http.Request) {
	resp, err := h.backend.EbayAuthURL(r.Context(), services.TokenFromRequest(r))
	if err != nil {
		h.writeBackendError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// writeSessionError answers a failed session lookup: 401 when the backend
// rejected the token, otherwise the backend failure.
func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var be *services.BackendError
	if errors.Is(err, services.ErrUnauthorized) || (errors.As(err, &be) && be.Unauthorized()) {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	h.writeBackendError(w, r, err)
}
