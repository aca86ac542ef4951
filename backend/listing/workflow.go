// ABOUTME: Listing workflow: form -> platforms -> posting -> success | error
// ABOUTME: Posts a clothing item to each selected marketplace behind a pending local record

package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fitcheck/fitcheck/backend/logger"
	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// State is a step of the listing workflow
type State string

const (
	StateForm      State = "form"
	StatePlatforms State = "platforms"
	StatePosting   State = "posting"
	StateSuccess   State = "success"
	StateError     State = "error"
)

const (
	FallbackFacebook = "facebook"
	FallbackReject   = "reject"
)

var (
	ErrInvalidTransition   = errors.New("invalid listing workflow transition")
	ErrNoPlatforms         = errors.New("select at least one platform")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrEbayNotAuthorized   = errors.New("eBay account is not connected")
	ErrEbayDetailsRequired = errors.New("eBay listings need category, location and shipping details")
)

// Draft is the listing form content
type Draft = models.ListingDraft

// Options tune a workflow. Zero values pick the defaults.
type Options struct {
	// EbayFallback is "facebook" (substitute Facebook when eBay is not
	// connected) or "reject" (fail the selection).
	EbayFallback  string
	RedirectDelay time.Duration
	Logger        *slog.Logger
}

// Fallback records a platform substitution made during selection
type Fallback struct {
	From   models.Platform `json:"from"`
	To     models.Platform `json:"to"`
	Reason string          `json:"reason"`
}

// PlatformResult is the fate of one platform in a posting run
type PlatformResult struct {
	Platform   models.Platform      `json:"platform"`
	ListingID  int                  `json:"listing_id,omitempty"`
	ExternalID string               `json:"external_id,omitempty"`
	URL        string               `json:"url,omitempty"`
	Status     models.ListingStatus `json:"status"`
	Error      string               `json:"error,omitempty"`
}

// Outcome is returned to the client after posting
type Outcome struct {
	State           State            `json:"state"`
	Platforms       []PlatformResult `json:"platforms"`
	Fallback        *Fallback        `json:"fallback,omitempty"`
	Error           string           `json:"error,omitempty"`
	RedirectTo      string           `json:"redirect_to,omitempty"`
	RedirectAfterMS int64            `json:"redirect_after_ms,omitempty"`
}

// Workflow drives one listing attempt. It is not safe for concurrent use.
type Workflow struct {
	poster Poster
	opts   Options
	log    *slog.Logger

	state     State
	draft     Draft
	userID    int
	platforms []models.Platform
	fallback  *Fallback
	outcome   *Outcome
}

// NewWorkflow returns a workflow in the form state.
func NewWorkflow(poster Poster, opts Options) *Workflow {
	if opts.EbayFallback == "" {
		opts.EbayFallback = FallbackFacebook
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = 3 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logger.Component("listing")
	}
	return &Workflow{poster: poster, opts: opts, log: log, state: StateForm}
}

func (w *Workflow) State() State {
	return w.state
}

// Platforms returns the effective selection after any fallback.
func (w *Workflow) Platforms() []models.Platform {
	return append([]models.Platform(nil), w.platforms...)
}

func (w *Workflow) Fallback() *Fallback {
	return w.fallback
}

// Outcome is nil until Post has run.
func (w *Workflow) Outcome() *Outcome {
	return w.outcome
}

func (w *Workflow) transition(from, to State) error {
	if w.state != from {
		return fmt.Errorf("%w: cannot go from %s to %s", ErrInvalidTransition, w.state, to)
	}
	w.state = to
	return nil
}

// SubmitForm validates the draft and moves to platform selection.
func (w *Workflow) SubmitForm(draft Draft) error {
	if w.state != StateForm {
		return fmt.Errorf("%w: form submitted in state %s", ErrInvalidTransition, w.state)
	}
	if err := services.Validate(draft); err != nil {
		return err
	}
	w.draft = draft
	return w.transition(StateForm, StatePlatforms)
}

// Back returns from platform selection to the form.
func (w *Workflow) Back() error {
	return w.transition(StatePlatforms, StateForm)
}

// SelectPlatforms confirms the target marketplaces for userID. An unconnected
// eBay account is either swapped for Facebook or rejected, per EbayFallback.
func (w *Workflow) SelectPlatforms(ctx context.Context, userID int, platforms []models.Platform) error {
	if w.state != StatePlatforms {
		return fmt.Errorf("%w: platforms selected in state %s", ErrInvalidTransition, w.state)
	}

	selected := dedupe(platforms)
	if len(selected) == 0 {
		return ErrNoPlatforms
	}
	for _, p := range selected {
		if !p.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPlatform, services.SanitizeForLog(string(p)))
		}
	}

	var fallback *Fallback
	if slices.Contains(selected, models.PlatformEbay) {
		authorized, err := w.poster.EbayAuthorized(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to check eBay authorization: %w", err)
		}

		switch {
		case !authorized && w.opts.EbayFallback == FallbackReject:
			w.log.Info("eBay selected without a connected account, rejecting", "user_id", userID)
			return ErrEbayNotAuthorized
		case !authorized:
			selected = dedupe(replace(selected, models.PlatformEbay, models.PlatformFacebook))
			fallback = &Fallback{
				From:   models.PlatformEbay,
				To:     models.PlatformFacebook,
				Reason: "eBay account is not connected",
			}
			w.log.Warn("Substituting Facebook for unconnected eBay account",
				"user_id", userID,
				"from", fallback.From,
				"to", fallback.To,
				"reason", fallback.Reason,
				"clothing_item_id", w.draft.ClothingItemID)
		case w.draft.Ebay == nil:
			return ErrEbayDetailsRequired
		}
	}

	w.userID = userID
	w.platforms = selected
	w.fallback = fallback
	return w.transition(StatePlatforms, StatePosting)
}

// Post lists the item on each selected platform in order. Each platform gets
// a pending record first; the first platform failure stops the run and
// platforms already posted are left in place.
func (w *Workflow) Post(ctx context.Context) (*Outcome, error) {
	if w.state != StatePosting {
		return nil, fmt.Errorf("%w: post in state %s", ErrInvalidTransition, w.state)
	}

	out := &Outcome{State: StatePosting, Platforms: make([]PlatformResult, 0, len(w.platforms)), Fallback: w.fallback}
	w.outcome = out

	for _, p := range w.platforms {
		result, err := w.postOne(ctx, p)
		out.Platforms = append(out.Platforms, result)
		if err != nil {
			w.state = StateError
			out.State = StateError
			out.Error = err.Error()
			w.log.Error("Listing failed",
				"platform", p,
				"clothing_item_id", w.draft.ClothingItemID,
				"posted", len(out.Platforms)-1,
				"error", err)
			return out, err
		}
	}

	w.state = StateSuccess
	out.State = StateSuccess
	out.RedirectTo = "/listed-item/" + strconv.Itoa(w.draft.ClothingItemID)
	out.RedirectAfterMS = w.opts.RedirectDelay.Milliseconds()
	w.log.Info("Listing posted", "clothing_item_id", w.draft.ClothingItemID, "platforms", w.platforms)
	return out, nil
}

func (w *Workflow) postOne(ctx context.Context, p models.Platform) (PlatformResult, error) {
	result := PlatformResult{Platform: p, Status: models.ListingPending}

	rec, err := w.poster.CreateRecord(ctx, models.ResaleListing{
		UserID:         w.userID,
		ClothingItemID: w.draft.ClothingItemID,
		Platform:       p,
		Price:          w.draft.Price,
		Status:         models.ListingPending,
		IdempotencyKey: uuid.New().String(),
	})
	if err != nil {
		result.Status = models.ListingFailed
		result.Error = err.Error()
		return result, fmt.Errorf("failed to create %s listing record: %w", p, err)
	}
	result.ListingID = rec.ID

	var posted *Posted
	switch p {
	case models.PlatformFacebook:
		posted, err = w.poster.PostFacebook(ctx, w.draft)
	case models.PlatformEbay:
		posted, err = w.poster.PostEbay(ctx, w.userID, w.draft)
	}
	if err != nil {
		result.Status = models.ListingFailed
		result.Error = err.Error()
		failed := models.ListingFailed
		if uerr := w.poster.UpdateRecord(ctx, w.draft.ClothingItemID, models.ResaleListingUpdate{Platform: &p, Status: &failed}); uerr != nil {
			w.log.Warn("Could not mark listing record failed", "listing_id", rec.ID, "platform", p, "error", uerr)
		}
		return result, fmt.Errorf("failed to post to %s: %w", p, err)
	}
	result.ExternalID = posted.ExternalID
	result.URL = posted.URL

	active := models.ListingActive
	upd := models.ResaleListingUpdate{Platform: &p, Status: &active, URL: &posted.URL}
	if err := w.poster.UpdateRecord(ctx, w.draft.ClothingItemID, upd); err != nil {
		// The marketplace listing is live; leave the record pending for reconciliation
		result.Error = "posted but record not activated: " + err.Error()
		w.log.Warn("Listing record left pending", "listing_id", rec.ID, "platform", p, "external_id", posted.ExternalID, "error", err)
		return result, nil
	}

	result.Status = models.ListingActive
	return result, nil
}

func dedupe(in []models.Platform) []models.Platform {
	seen := make(map[models.Platform]bool, len(in))
	out := make([]models.Platform, 0, len(in))
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func replace(in []models.Platform, from, to models.Platform) []models.Platform {
	out := make([]models.Platform, len(in))
	for i, p := range in {
		if p == from {
			p = to
		}
		out[i] = p
	}
	return out
}
