// ABOUTME: Tests for login, logout and current-user handlers
// ABOUTME: Verifies cookie attributes, credential error mapping and backend status relay

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/models"
)

func TestLogin_SetsCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"user":{"id":4,"name":"Ada","email":"ada@example.com","login_token":"tok-secret"}}`))
	}))
	defer backend.Close()

	h := newTestHandler(t, &config.Config{BackendURL: backend.URL, CookieSecure: true})
	rr := doJSON(t, newTestMux(h), http.MethodPost, "/api/login", "",
		models.LoginRequest{Email: "ada@example.com", Password: "pw"})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	setCookie := rr.Header().Get("Set-Cookie")
	for _, want := range []string{"login_token=tok-secret", "Path=/", "Max-Age=8640000", "HttpOnly", "Secure", "SameSite=Strict"} {
		if !strings.Contains(setCookie, want) {
			t.Errorf("Expected %q in Set-Cookie %q", want, setCookie)
		}
	}
	if strings.Contains(rr.Body.String(), "tok-secret") {
		t.Error("Token must not appear in the response body")
	}

	var resp models.LoginResponse
	decodeBody(t, rr, &resp)
	if !resp.Success || resp.User == nil || resp.User.ID != 4 {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestLogin_CredentialErrorBecomes401(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Incorrect password"}`))
	}))
	defer backend.Close()

	h := newTestHandler(t, &config.Config{BackendURL: backend.URL})
	rr := doJSON(t, newTestMux(h), http.MethodPost, "/api/login", "",
		models.LoginRequest{Email: "ada@example.com", Password: "nope"})

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("Set-Cookie") != "" {
		t.Error("Expected no cookie on failed login")
	}

	var resp models.LoginResponse
	decodeBody(t, rr, &resp)
	if resp.Success || resp.Error != "Incorrect password" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestLogin_RelaysBackendStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"email not verified"}`))
	}))
	defer backend.Close()

	h := newTestHandler(t, &config.Config{BackendURL: backend.URL})
	rr := doJSON(t, newTestMux(h), http.MethodPost, "/api/login", "",
		models.LoginRequest{Email: "ada@example.com", Password: "pw"})

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rr.Code)
	}
	if rr.Body.String() != `{"detail":"email not verified"}` {
		t.Errorf("Expected backend body verbatim, got %q", rr.Body.String())
	}
}

func TestLogin_ValidatesInput(t *testing.T) {
	var calls int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer backend.Close()

	h := newTestHandler(t, &config.Config{BackendURL: backend.URL})
	mux := newTestMux(h)

	for _, req := range []models.LoginRequest{
		{Email: "", Password: "pw"},
		{Email: "not-an-email", Password: "pw"},
		{Email: "ada@example.com", Password: ""},
	} {
		rr := doJSON(t, mux, http.MethodPost, "/api/login", "", req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %+v, got %d", req, rr.Code)
		}
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("Backend must not be called for invalid input")
	}
}

func TestLogin_BackendNotConfigured(t *testing.T) {
	h := newTestHandler(t, &config.Config{})
	rr := doJSON(t, newTestMux(h), http.MethodPost, "/api/login", "",
		models.LoginRequest{Email: "ada@example.com", Password: "pw"})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Error != "BACKEND_URL is not set" {
		t.Errorf("Unexpected error %q", resp.Error)
	}
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	h := newTestHandler(t, nil)
	mux := newTestMux(h)

	for _, token := range []string{"", "tok-1"} {
		rr := doJSON(t, mux, http.MethodPost, "/api/logout", token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rr.Code)
		}
		setCookie := rr.Header().Get("Set-Cookie")
		if !strings.Contains(setCookie, "login_token=") || !strings.Contains(setCookie, "Max-Age=0") {
			t.Errorf("Expected clearing cookie, got %q", setCookie)
		}
		if !strings.Contains(rr.Body.String(), `"success":true`) {
			t.Errorf("Unexpected body %s", rr.Body.String())
		}
	}
}

func TestMe(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Write([]byte(`{"user":{"id":7,"name":"Ada","email":"ada@example.com"}}`))
		case "Bearer boom":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"db down"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"invalid token"}`))
		}
	}))
	defer backend.Close()

	h := newTestHandler(t, &config.Config{BackendURL: backend.URL})
	mux := newTestMux(h)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"valid token", "good", http.StatusOK},
		{"rejected token", "stale", http.StatusUnauthorized},
		{"backend failure", "boom", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, mux, http.MethodGet, "/api/me", tt.token, nil)
			if rr.Code != tt.want {
				t.Fatalf("Expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if tt.want == http.StatusOK {
				var resp models.MeResponse
				decodeBody(t, rr, &resp)
				if resp.User.ID != 7 {
					t.Errorf("Expected user 7, got %+v", resp.User)
				}
			}
		})
	}
}
