// ABOUTME: Tests for the table-driven backend relay
// ABOUTME: Covers routing, URL joining, auth rewriting, body modes and error wrapping

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcheck/fitcheck/backend/middleware"
	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

type requestLog struct {
	mu   sync.Mutex
	reqs []capturedRequest
}

func (l *requestLog) all() []capturedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]capturedRequest(nil), l.reqs...)
}

// fakeBackend records each request and answers with respond.
func fakeBackend(t *testing.T, respond http.HandlerFunc) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		log.reqs = append(log.reqs, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		log.mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(server.Close)
	return server, log
}

func jsonOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestRelay_Match(t *testing.T) {
	relay := NewRelay("http://backend", nil, DefaultRelayRoutes())

	tests := []struct {
		path string
		want string
	}{
		{"/api/upload-image", "upload-image"},
		{"/api/upload-images", "generic"},
		{"/api/upload-new-outfit", "upload-new-outfit"},
		{"/api/ebay/listing", "ebay"},
		{"/api/ebay", "generic"},
		{"/api/facebook/catalog", "facebook"},
		{"/api/resale_listings", "resale-listings"},
		{"/api/resale_listings/12", "resale-listings"},
		{"/api/outfit_wear_history/3", "outfit-wear-history"},
		{"/api/clothing_items/4", "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, ok := relay.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.want, route.Name)
		})
	}

	_, ok := relay.Match("/health")
	assert.False(t, ok)
}

func TestRelay_TargetURL(t *testing.T) {
	relay := NewRelay("http://backend:8000//", nil, DefaultRelayRoutes())

	tests := []struct {
		target string
		want   string
	}{
		{"/api/clothing_items/4?include=tags", "http://backend:8000/clothing_items/4?include=tags"},
		{"/api/resale_listings", "http://backend:8000/resale_listings"},
		{"/api/resale_listings/", "http://backend:8000/resale_listings/"},
		{"/api/ebay/account/policies?user_id=5", "http://backend:8000/ebay/account/policies?user_id=5"},
		{"/api/users//3", "http://backend:8000/users/3"},
		{"/api/upload-image", "http://backend:8000/upload-image"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			route, ok := relay.Match(req.URL.Path)
			require.True(t, ok)
			assert.Equal(t, tt.want, relay.TargetURL(route, req))
		})
	}
}

func TestRelay_MissingBackendURL(t *testing.T) {
	relay := NewRelay("", nil, DefaultRelayRoutes())

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete} {
		for _, path := range []string{"/api/clothing_items/1", "/api/ebay/listing", "/api/upload-image", "/nowhere"} {
			req := httptest.NewRequest(method, path, nil)
			rr := httptest.NewRecorder()
			relay.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusInternalServerError, rr.Code, "%s %s", method, path)
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "BACKEND_URL is not set", resp.Error)
		}
	}
}

func TestRelay_ForwardsCookieAsBearer(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`[{"id":1}]`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	req := httptest.NewRequest(http.MethodGet, "/api/clothing_items/?tag=winter", nil)
	req.AddCookie(&http.Cookie{Name: services.CookieName, Value: "tok-1"})
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Connection", "keep-alive")
	req = req.WithContext(middleware.WithRequestID(req.Context(), "req-123"))

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":1}]`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	require.Len(t, captured.all(), 1)
	got := captured.all()[0]
	assert.Equal(t, "/clothing_items/", got.Path)
	assert.Equal(t, "tag=winter", got.Query)
	assert.Equal(t, "Bearer tok-1", got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get("Cookie"))
	assert.Equal(t, "en", got.Header.Get("Accept-Language"))
	assert.Equal(t, "req-123", got.Header.Get(middleware.RequestIDHeader))
}

func TestRelay_ExplicitAuthorizationWins(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer header-tok")
	req.AddCookie(&http.Cookie{Name: services.CookieName, Value: "cookie-tok"})
	relay.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, captured.all(), 1)
	assert.Equal(t, "Bearer header-tok", captured.all()[0].Header.Get("Authorization"))
}

func TestRelay_RequireAuth(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/resale_listings/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, captured.all())
}

func TestRelay_MethodNotAllowed(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/upload-image", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "POST", rr.Header().Get("Allow"))
	assert.Empty(t, captured.all())
}

func TestRelay_ReserializesJSON(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{"id":9}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	req := httptest.NewRequest(http.MethodPatch, "/api/clothing_items/9",
		strings.NewReader("{ \"price\" : 1.50,\n \"tags\": [\"wool\"] }"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, captured.all(), 1)
	got := captured.all()[0]
	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, `{"price":1.50,"tags":["wool"]}`, string(got.Body))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
}

func TestRelay_InvalidJSON(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/outfits/", strings.NewReader("{not json")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, captured.all())
}

func TestRelay_StreamsUploads(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{"s3url":"https://cdn/x.jpg"}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "coat.jpg")
	require.NoError(t, err)
	part.Write([]byte("not-really-a-jpeg"))
	require.NoError(t, mw.WriteField("name", "Coat"))
	require.NoError(t, mw.Close())
	sent := body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/api/upload-new-image", bytes.NewReader(sent))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, captured.all(), 1)
	got := captured.all()[0]
	assert.Equal(t, "/upload-new-image", got.Path)
	assert.Equal(t, mw.FormDataContentType(), got.Header.Get("Content-Type"))
	assert.Equal(t, sent, got.Body)
}

func TestRelay_RejectsOversizedUpload(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-image", strings.NewReader("--boundary--"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	req.ContentLength = maxUploadSize + 1
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "Request body too large")
	assert.Empty(t, captured.all())
}

func TestRelay_RejectsOversizedJSON(t *testing.T) {
	server, captured := fakeBackend(t, jsonOK(`{}`))
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	body := `{"note":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/outfits/", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Empty(t, captured.all())
}

func TestRelay_WrapsNonJSONResponse(t *testing.T) {
	server, _ := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream exploded</html>"))
	})
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/outfits/", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Bad Gateway", resp.Error)
	assert.Equal(t, "<html>upstream exploded</html>", resp.Details)
}

func TestRelay_EmptyResponse(t *testing.T) {
	server, _ := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	req := httptest.NewRequest(http.MethodDelete, "/api/outfit_wear_history/4", nil)
	req.AddCookie(&http.Cookie{Name: services.CookieName, Value: "tok"})
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestRelay_BackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	relay := NewRelay(url, nil, DefaultRelayRoutes())
	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/outfits/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to reach backend", resp.Error)
	assert.NotEmpty(t, resp.Details)
}

func TestRelay_ForwardsSelectedResponseHeaders(t *testing.T) {
	server, _ := fakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("X-Internal", "secret")
		w.Write([]byte(`{}`))
	})
	relay := NewRelay(server.URL, nil, DefaultRelayRoutes())

	rr := httptest.NewRecorder()
	relay.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/outfits/", nil))

	assert.Equal(t, `"v1"`, rr.Header().Get("ETag"))
	assert.Empty(t, rr.Header().Get("X-Internal"))
}
