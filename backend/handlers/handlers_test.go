// ABOUTME: Shared helpers for handler tests
// ABOUTME: Builds handlers against httptest fakes and serves them through the route table

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/services"
)

func newTestHandler(t *testing.T, cfg *config.Config) *Handler {
	t.Helper()
	store := cache.New(time.Minute)
	t.Cleanup(func() { store.Close() })
	return NewHandler(cfg, store)
}

// newTestMux registers every route without middleware.
func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, rt := range h.Routes() {
		mux.HandleFunc(rt.Pattern(), rt.Handler)
	}
	return mux
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: services.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestWriteUpstreamBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantBody string
	}{
		{"json verbatim", 422, `{"detail":"bad"}`, `{"detail":"bad"}`},
		{"empty body", 204, "", ""},
		{"text wrapped", 502, "upstream down", `{"error":"Bad Gateway","details":"upstream down","code":502}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeUpstreamBody(rr, tt.status, []byte(tt.body))
			if rr.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rr.Code)
			}
			if rr.Body.String() != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func TestTruncateDetails(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 3000)
	if got := truncateDetails(string(long)); len(got) != maxDetails {
		t.Errorf("Expected %d bytes, got %d", maxDetails, len(got))
	}
	if got := truncateDetails("short"); got != "short" {
		t.Errorf("Expected short string unchanged, got %q", got)
	}
}
