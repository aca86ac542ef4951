// ABOUTME: Typed client for the FitCheck backend service (users, closet, listings, marketplaces)
// ABOUTME: Attaches the session bearer token and surfaces non-2xx answers as BackendError

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fitcheck/fitcheck/backend/models"
)

// ErrBackendNotConfigured is returned by every call when BACKEND_URL is empty.
var ErrBackendNotConfigured = errors.New("BACKEND_URL is not set")

// ErrUnauthorized means the request carried no session token.
var ErrUnauthorized = errors.New("authentication required")

// maxErrorBody bounds how much of an upstream error body is kept.
const maxErrorBody = 4096

// BackendError is a non-2xx answer from the backend service.
type BackendError struct {
	Status int
	Body   []byte
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, truncate(string(e.Body), 200))
}

// Unauthorized reports whether the backend rejected the session.
func (e *BackendError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// BackendClient talks to the backend service on behalf of a session.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a client. allProxy may name an ssh+socks5 jumpbox
// (ssh+socks5://user@host:port?private-key=/path) used to reach a private backend.
func NewBackendClient(baseURL string, timeout time.Duration, allProxy string) *BackendClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 30 * time.Second

	if allProxy != "" {
		dial, err := jumpboxDialContext(allProxy)
		if err != nil {
			slog.Error("Ignoring BACKEND_ALL_PROXY", "error", err)
		} else {
			transport.DialContext = dial
			transport.Proxy = nil
		}
	}

	return &BackendClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (b *BackendClient) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

// HTTPClient returns the client shared with the relay.
func (b *BackendClient) HTTPClient() *http.Client {
	return b.httpClient
}

func (b *BackendClient) BaseURL() string {
	return b.baseURL
}

func (b *BackendClient) Configured() bool {
	return b != nil && b.baseURL != ""
}

// URL joins path onto the backend base URL.
func (b *BackendClient) URL(path string) string {
	return JoinURL(b.baseURL, path)
}

var duplicateSlashes = regexp.MustCompile(`/{2,}`)

// JoinURL concatenates base and path and collapses every run of slashes
// after the scheme separator to a single slash. The query string is left as is.
func JoinURL(base, path string) string {
	joined := base + "/" + path

	query := ""
	if i := strings.Index(joined, "?"); i >= 0 {
		joined, query = joined[:i], joined[i:]
	}

	scheme := ""
	if i := strings.Index(joined, "://"); i >= 0 {
		scheme, joined = joined[:i+3], joined[i+3:]
	}

	return scheme + duplicateSlashes.ReplaceAllString(joined, "/") + query
}

func (b *BackendClient) do(ctx context.Context, method, path, token string, body, out interface{}) error {
	if !b.Configured() {
		return ErrBackendNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := b.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	slog.Debug("Backend call", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &BackendError{Status: resp.StatusCode, Body: data}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend %s: %w", path, err)
	}
	return nil
}

// Login forwards credentials to /login.
func (b *BackendClient) Login(ctx context.Context, req models.LoginRequest) (*models.BackendLoginResponse, error) {
	var resp models.BackendLoginResponse
	if err := b.do(ctx, http.MethodPost, "/login", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CurrentUser returns the user owning token.
func (b *BackendClient) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	var resp models.MeResponse
	if err := b.do(ctx, http.MethodGet, "/users/me", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// GetUser returns a user with their clothing items.
func (b *BackendClient) GetUser(ctx context.Context, token string, id int) (*models.User, error) {
	var user models.User
	if err := b.do(ctx, http.MethodGet, "/users/"+strconv.Itoa(id), token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *BackendClient) ListWearHistory(ctx context.Context, token string) ([]models.WearHistoryEntry, error) {
	var entries []models.WearHistoryEntry
	if err := b.do(ctx, http.MethodGet, "/outfit_wear_history/", token, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *BackendClient) GetOutfit(ctx context.Context, token string, id int) (*models.Outfit, error) {
	var outfit models.Outfit
	if err := b.do(ctx, http.MethodGet, "/outfits/"+strconv.Itoa(id), token, nil, &outfit); err != nil {
		return nil, err
	}
	return &outfit, nil
}

// LogOutfitWorn records an OOTD entry.
func (b *BackendClient) LogOutfitWorn(ctx context.Context, token string, entry models.WearHistoryEntry) (*models.WearHistoryEntry, error) {
	var created models.WearHistoryEntry
	if err := b.do(ctx, http.MethodPost, "/outfit_wear_history/", token, entry, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *BackendClient) CreateResaleListing(ctx context.Context, token string, rec models.ResaleListing) (*models.ResaleListing, error) {
	var created models.ResaleListing
	if err := b.do(ctx, http.MethodPost, "/resale_listings/", token, rec, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateResaleListing patches the record of a clothing item; the backend keys
// resale records by clothing item id.
func (b *BackendClient) UpdateResaleListing(ctx context.Context, token string, clothingItemID int, upd models.ResaleListingUpdate) (*models.ResaleListing, error) {
	var updated models.ResaleListing
	path := "/resale_listings/" + strconv.Itoa(clothingItemID)
	if err := b.do(ctx, http.MethodPatch, path, token, upd, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (b *BackendClient) PostFacebookCatalog(ctx context.Context, token string, item models.FacebookCatalogItem) (*models.FacebookCatalogResponse, error) {
	var resp models.FacebookCatalogResponse
	if err := b.do(ctx, http.MethodPost, "/facebook/catalog", token, item, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (b *BackendClient) UpdateFacebookCatalog(ctx context.Context, token string, item models.FacebookCatalogItem) error {
	return b.do(ctx, http.MethodPatch, "/facebook/update", token, item, nil)
}

func (b *BackendClient) CreateEbayListing(ctx context.Context, token string, userID int, req models.EbayListingRequest) (*models.EbayListingResponse, error) {
	var resp models.EbayListingResponse
	path := "/ebay/listing?user_id=" + url.QueryEscape(strconv.Itoa(userID))
	if err := b.do(ctx, http.MethodPost, path, token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// EbayAuthorized probes the seller policies endpoint, which the backend only
// answers for users that completed eBay consent.
func (b *BackendClient) EbayAuthorized(ctx context.Context, token string, userID int) (bool, error) {
	path := "/ebay/account/policies?policy_type=return&user_id=" + url.QueryEscape(strconv.Itoa(userID))
	err := b.do(ctx, http.MethodGet, path, token, nil, nil)
	if err == nil {
		return true, nil
	}

	var be *BackendError
	if errors.As(err, &be) && be.Unauthorized() {
		return false, nil
	}
	return false, err
}

func (b *BackendClient) EbayAuthURL(ctx context.Context, token string) (*models.EbayAuthURLResponse, error) {
	var resp models.EbayAuthURLResponse
	if err := b.do(ctx, http.MethodGet, "/ebay/auth/url", token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
