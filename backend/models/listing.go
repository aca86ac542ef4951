// ABOUTME: Resale listing models and marketplace payloads
// ABOUTME: Local listing records, listing drafts, Facebook catalog and eBay listing contracts

package models

// Platform is a resale marketplace
type Platform string

const (
	PlatformFacebook Platform = "facebook"
	PlatformEbay     Platform = "ebay"
)

// Valid reports whether p is a supported marketplace
func (p Platform) Valid() bool {
	return p == PlatformFacebook || p == PlatformEbay
}

// ListingStatus is the lifecycle of a local resale record.
// Records are created pending, then marked active or failed after the
// marketplace call; sold is set later by the user.
type ListingStatus string

const (
	ListingPending ListingStatus = "pending"
	ListingActive  ListingStatus = "active"
	ListingFailed  ListingStatus = "failed"
	ListingSold    ListingStatus = "sold"
)

// ResaleListing links a clothing item to a marketplace posting
type ResaleListing struct {
	ID             int           `json:"id,omitempty"`
	UserID         int           `json:"user_id"`
	ClothingItemID int           `json:"clothing_item_id"`
	Platform       Platform      `json:"platform"`
	Price          float64       `json:"price"`
	URL            string        `json:"url"`
	Status         ListingStatus `json:"status"`
	SoldOn         *string       `json:"sold_on"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// ResaleListingUpdate is a partial update; nil fields are left untouched
type ResaleListingUpdate struct {
	Platform *Platform      `json:"platform,omitempty"`
	Price    *float64       `json:"price,omitempty"`
	URL      *string        `json:"url,omitempty"`
	Status   *ListingStatus `json:"status,omitempty"`
	SoldOn   *string        `json:"sold_on,omitempty"`
}

// ListingDraft is the listing form as submitted by the user
type ListingDraft struct {
	ClothingItemID int          `json:"clothing_item_id" validate:"required,gt=0"`
	Name           string       `json:"name" validate:"required,max=150"`
	Description    string       `json:"description" validate:"max=5000"`
	Category       string       `json:"category,omitempty"`
	Brand          string       `json:"brand,omitempty"`
	Color          string       `json:"color,omitempty"`
	Size           string       `json:"size,omitempty"`
	Price          float64      `json:"price" validate:"gt=0"`
	Currency       string       `json:"currency" validate:"required,len=3,uppercase"`
	Quantity       int          `json:"quantity" validate:"gte=1"`
	ImageURL       string       `json:"image_url" validate:"required,url"`
	RetailerID     string       `json:"retailer_id,omitempty" validate:"omitempty,email"`
	Ebay           *EbayDetails `json:"ebay,omitempty"`
}

// EbayDetails are the eBay-only fields of a listing
type EbayDetails struct {
	CategoryID      string               `json:"category_id" validate:"required"`
	Condition       string               `json:"condition,omitempty"`
	Location        EbayLocation         `json:"location"`
	ShippingOptions []EbayShippingOption `json:"shipping_options" validate:"min=1,dive"`
}

// CreateListingRequest is the body of POST /api/listings
type CreateListingRequest struct {
	Draft     ListingDraft `json:"draft"`
	Platforms []Platform   `json:"platforms"`
}

// UpdateListingRequest is the body of PATCH /api/listings/{clothing_item_id}
type UpdateListingRequest struct {
	Name        string         `json:"name" validate:"required"`
	Price       *float64       `json:"price,omitempty" validate:"omitempty,gt=0"`
	Currency    string         `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description string         `json:"description,omitempty"`
	ImageURL    string         `json:"image_url,omitempty" validate:"omitempty,url"`
	Status      *ListingStatus `json:"status,omitempty" validate:"omitempty,oneof=pending active failed sold"`
}

// FacebookCatalogItem is the body of POST /facebook/catalog and PATCH /facebook/update
type FacebookCatalogItem struct {
	Name        string  `json:"name"`
	Currency    string  `json:"currency"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Size        string  `json:"size,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	RetailerID  string  `json:"retailer_id,omitempty"`
	Description string  `json:"description"`
	WebsiteLink string  `json:"website_link"`
}

// FacebookCatalogResponse is the Graph API product id echoed by the backend
type FacebookCatalogResponse struct {
	ID string `json:"id"`
}

type EbayLocation struct {
	Country         string `json:"country" validate:"required,len=2"`
	PostalCode      string `json:"postal_code" validate:"required"`
	City            string `json:"city,omitempty"`
	StateOrProvince string `json:"state_or_province,omitempty"`
}

type EbayShippingOption struct {
	ShippingServiceCode    string  `json:"shipping_service_code" validate:"required"`
	ShippingCost           float64 `json:"shipping_cost" validate:"gte=0"`
	AdditionalShippingCost float64 `json:"additional_shipping_cost,omitempty"`
	ShippingCarrierCode    string  `json:"shipping_carrier_code,omitempty"`
	ShippingType           string  `json:"shipping_type,omitempty"`
}

// EbayListingRequest is the body of POST /ebay/listing?user_id=
type EbayListingRequest struct {
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Price               float64              `json:"price"`
	Currency            string               `json:"currency"`
	Condition           string               `json:"condition"`
	CategoryID          string               `json:"category_id"`
	ImageURLs           []string             `json:"image_urls"`
	Quantity            int                  `json:"quantity"`
	Location            EbayLocation         `json:"location"`
	ShippingOptions     []EbayShippingOption `json:"shipping_options"`
	FulfillmentPolicyID string               `json:"fulfillment_policy_id,omitempty"`
	PaymentPolicyID     string               `json:"payment_policy_id,omitempty"`
	ReturnPolicyID      string               `json:"return_policy_id,omitempty"`
	ListingDuration     string               `json:"listing_duration,omitempty"`
}

// EbayListingResponse is returned by the backend after publishing an offer
type EbayListingResponse struct {
	Message   string `json:"message"`
	SKU       string `json:"sku"`
	OfferID   string `json:"offer_id"`
	ListingID string `json:"listing_id"`
}

// EbayAuthURLResponse carries the eBay consent URL
type EbayAuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}
