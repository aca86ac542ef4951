// ABOUTME: Marketplace poster backed by the FitCheck backend service
// ABOUTME: Builds Facebook catalog and eBay listing payloads from a listing draft

package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

const (
	defaultEbayCondition = "USED_EXCELLENT"
	facebookProductURL   = "https://www.facebook.com/commerce/products/"
)

// Posted identifies a live marketplace listing
type Posted struct {
	ExternalID string
	URL        string
}

// Poster performs the remote calls of a posting run
type Poster interface {
	EbayAuthorized(ctx context.Context, userID int) (bool, error)
	CreateRecord(ctx context.Context, rec models.ResaleListing) (*models.ResaleListing, error)
	UpdateRecord(ctx context.Context, clothingItemID int, upd models.ResaleListingUpdate) error
	PostFacebook(ctx context.Context, draft Draft) (*Posted, error)
	PostEbay(ctx context.Context, userID int, draft Draft) (*Posted, error)
}

// BackendPoster posts through the backend service on behalf of one session
type BackendPoster struct {
	client      *services.BackendClient
	token       string
	websiteLink string
	ebayItemURL string
}

func NewBackendPoster(client *services.BackendClient, token, websiteLink, ebayItemURL string) *BackendPoster {
	return &BackendPoster{
		client:      client,
		token:       token,
		websiteLink: websiteLink,
		ebayItemURL: ebayItemURL,
	}
}

func (b *BackendPoster) EbayAuthorized(ctx context.Context, userID int) (bool, error) {
	return b.client.EbayAuthorized(ctx, b.token, userID)
}

func (b *BackendPoster) CreateRecord(ctx context.Context, rec models.ResaleListing) (*models.ResaleListing, error) {
	return b.client.CreateResaleListing(ctx, b.token, rec)
}

func (b *BackendPoster) UpdateRecord(ctx context.Context, clothingItemID int, upd models.ResaleListingUpdate) error {
	_, err := b.client.UpdateResaleListing(ctx, b.token, clothingItemID, upd)
	return err
}

func (b *BackendPoster) PostFacebook(ctx context.Context, draft Draft) (*Posted, error) {
	resp, err := b.client.PostFacebookCatalog(ctx, b.token, FacebookItem(draft, b.websiteLink))
	if err != nil {
		return nil, err
	}
	posted := &Posted{ExternalID: resp.ID}
	if resp.ID != "" {
		posted.URL = facebookProductURL + resp.ID
	}
	return posted, nil
}

func (b *BackendPoster) PostEbay(ctx context.Context, userID int, draft Draft) (*Posted, error) {
	req, err := EbayRequest(draft)
	if err != nil {
		return nil, err
	}

	resp, err := b.client.CreateEbayListing(ctx, b.token, userID, req)
	if err != nil {
		return nil, err
	}

	posted := &Posted{ExternalID: resp.ListingID}
	if resp.ListingID != "" {
		posted.URL = strings.TrimSuffix(b.ebayItemURL, "/") + "/" + resp.ListingID
	}
	return posted, nil
}

// FacebookItem maps a draft onto a catalog item. Items without a retailer id
// are keyed by their clothing item id.
func FacebookItem(draft Draft, websiteLink string) models.FacebookCatalogItem {
	retailerID := draft.RetailerID
	if retailerID == "" {
		retailerID = fmt.Sprintf("fitcheck-%d", draft.ClothingItemID)
	}
	return models.FacebookCatalogItem{
		Name:        draft.Name,
		Currency:    draft.Currency,
		Price:       draft.Price,
		ImageURL:    draft.ImageURL,
		Size:        draft.Size,
		Quantity:    draft.Quantity,
		RetailerID:  retailerID,
		Description: draft.Description,
		WebsiteLink: websiteLink,
	}
}

// EbayRequest maps a draft onto a one-step eBay listing.
func EbayRequest(draft Draft) (models.EbayListingRequest, error) {
	if draft.Ebay == nil {
		return models.EbayListingRequest{}, ErrEbayDetailsRequired
	}

	condition := draft.Ebay.Condition
	if condition == "" {
		condition = defaultEbayCondition
	}

	return models.EbayListingRequest{
		Title:           draft.Name,
		Description:     draft.Description,
		Price:           draft.Price,
		Currency:        draft.Currency,
		Condition:       condition,
		CategoryID:      draft.Ebay.CategoryID,
		ImageURLs:       []string{draft.ImageURL},
		Quantity:        draft.Quantity,
		Location:        draft.Ebay.Location,
		ShippingOptions: draft.Ebay.ShippingOptions,
		ListingDuration: "GTC",
	}, nil
}
