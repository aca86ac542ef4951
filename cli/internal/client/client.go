// ABOUTME: HTTP client for the FitCheck relay API
// ABOUTME: Wraps API calls with session tokens and error handling for CLI usage

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CookieName is the session cookie set by /api/login
const CookieName = "login_token"

// ErrUnauthorized is returned when the service rejects the session
var ErrUnauthorized = errors.New("not logged in (run fitcheck login)")

// Client is the API client for the FitCheck relay
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client with the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of c sending token as a bearer credential
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// WithTimeout returns a copy of c with a different request timeout. Zero
// disables the timeout and leaves cancellation to the context.
func (c *Client) WithTimeout(d time.Duration) *Client {
	cp := *c
	cp.httpClient = &http.Client{Timeout: d}
	return &cp
}

// BaseURL returns the relay URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthResponse represents the /api/health endpoint response
type HealthResponse struct {
	Backend string `json:"backend"`
	TryOn   string `json:"tryon"`
	Weather string `json:"weather"`
	Storage string `json:"storage"`
	Cache   string `json:"cache"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EbayShippingOption is one shipping service offered on an eBay listing
type EbayShippingOption struct {
	ShippingServiceCode string  `json:"shipping_service_code"`
	ShippingCost        float64 `json:"shipping_cost"`
}

type EbayLocation struct {
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city,omitempty"`
}

// EbayDetails are the eBay-only listing fields
type EbayDetails struct {
	CategoryID      string               `json:"category_id"`
	Condition       string               `json:"condition,omitempty"`
	Location        EbayLocation         `json:"location"`
	ShippingOptions []EbayShippingOption `json:"shipping_options"`
}

// ListingDraft is the listing form content
type ListingDraft struct {
	ClothingItemID int          `json:"clothing_item_id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Size           string       `json:"size,omitempty"`
	Price          float64      `json:"price"`
	Currency       string       `json:"currency"`
	Quantity       int          `json:"quantity"`
	ImageURL       string       `json:"image_url"`
	Ebay           *EbayDetails `json:"ebay,omitempty"`
}

// CreateListingRequest is the body of POST /api/listings
type CreateListingRequest struct {
	Draft     ListingDraft `json:"draft"`
	Platforms []string     `json:"platforms"`
}

type PlatformResult struct {
	Platform   string `json:"platform"`
	ListingID  int    `json:"listing_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	URL        string `json:"url,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

type Fallback struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// ListingOutcome is the result of a listing run. A failed run still carries
// the per-platform results reached before the failure.
type ListingOutcome struct {
	State      string           `json:"state"`
	Platforms  []PlatformResult `json:"platforms"`
	Fallback   *Fallback        `json:"fallback,omitempty"`
	Error      string           `json:"error,omitempty"`
	RedirectTo string           `json:"redirect_to,omitempty"`
}

// TryOnRequest pairs a person photo with a garment image
type TryOnRequest struct {
	PersonImageURL  string `json:"person_image_url"`
	GarmentImageURL string `json:"garment_image_url"`
	Category        string `json:"category,omitempty"`
}

type TryOnResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     string `json:"error,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
}

type Weather struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Location    string  `json:"location"`
	Fallback    bool    `json:"fallback,omitempty"`
}

// APIError is a non-2xx answer from the relay
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("backend error: %s (%s)", e.Message, e.Details)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Health calls GET /api/health
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Login calls POST /api/login and returns the user with the session token
// taken from the Set-Cookie header.
func (c *Client) Login(ctx context.Context, email, password string) (*User, string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	var login LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return nil, "", fmt.Errorf("invalid response from backend: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !login.Success || login.User == nil {
		msg := login.Error
		if msg == "" {
			msg = "invalid credentials"
		}
		return nil, "", &APIError{Status: resp.StatusCode, Message: msg}
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == CookieName && cookie.Value != "" {
			return login.User, cookie.Value, nil
		}
	}
	return nil, "", errors.New("login succeeded but no session cookie was returned")
}

// Logout calls POST /api/logout
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// Me calls GET /api/me
func (c *Client) Me(ctx context.Context) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// CreateListing calls POST /api/listings. On a failed run the returned
// outcome is non-nil alongside the error.
func (c *Client) CreateListing(ctx context.Context, input *CreateListingRequest) (*ListingOutcome, error) {
	var outcome ListingOutcome
	err := c.do(ctx, http.MethodPost, "/api/listings", input, &outcome)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && outcome.State != "" {
			return &outcome, err
		}
		return nil, err
	}
	return &outcome, nil
}

// TryOn calls POST /api/virtual-try-on and waits for the result. The
// request is abandoned when ctx is cancelled.
func (c *Client) TryOn(ctx context.Context, input *TryOnRequest) (*TryOnResponse, error) {
	var resp TryOnResponse
	if err := c.do(ctx, http.MethodPost, "/api/virtual-try-on", input, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Weather calls GET /api/weather. Empty coordinates use the service default.
func (c *Client) Weather(ctx context.Context, lat, lon string) (*Weather, error) {
	q := url.Values{}
	if lat != "" {
		q.Set("lat", lat)
	}
	if lon != "" {
		q.Set("lon", lon)
	}
	path := "/api/weather"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var weather Weather
	if err := c.do(ctx, http.MethodGet, path, nil, &weather); err != nil {
		return nil, err
	}
	return &weather, nil
}

// do sends a JSON request and decodes the response into out. Error bodies
// are decoded into out as well when they are JSON.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp, out)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || !json.Valid(data) {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	if out != nil {
		json.Unmarshal(data, out)
	}

	var errResp ErrorResponse
	json.Unmarshal(data, &errResp)
	if errResp.Error == "" {
		errResp.Error = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: errResp.Error, Details: errResp.Details}
}
