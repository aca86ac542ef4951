// ABOUTME: Test helpers for e2e tests
// ABOUTME: Environment management plus a fake backend service behind the fully wired relay

package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/handlers"
	"github.com/fitcheck/fitcheck/backend/middleware"
)

// withTestEnv sets the given variables, returning a cleanup function that
// restores the original values.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Cleanup(withTestEnv(t, map[string]string{
//	        "CORS_ALLOWED_ORIGINS": "https://example.com",
//	    }))
//	}
func withTestEnv(t *testing.T, vars map[string]string) func() {
	t.Helper()

	type saved struct {
		value string
		set   bool
	}
	originals := make(map[string]saved, len(vars))
	for key, value := range vars {
		v, ok := os.LookupEnv(key)
		originals[key] = saved{value: v, set: ok}
		os.Setenv(key, value)
	}

	return func() {
		for key, s := range originals {
			if s.set {
				os.Setenv(key, s.value)
			} else {
				os.Unsetenv(key)
			}
		}
	}
}

// fakeService stands in for the FitCheck backend service.
type fakeService struct {
	mu       sync.Mutex
	seenAuth []string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.seenAuth = append(f.seenAuth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "POST /login":
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.Write([]byte(`{"error":"Incorrect password"}`))
			return
		}
		w.Write([]byte(`{"success":true,"user":{"id":1,"name":"Ada","email":"` + req.Email + `","login_token":"tok-e2e"}}`))
	case "GET /users/me":
		if r.Header.Get("Authorization") != "Bearer tok-e2e" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"invalid token"}`))
			return
		}
		w.Write([]byte(`{"user":{"id":1,"name":"Ada","email":"ada@example.com"}}`))
	case "GET /clothing_items/":
		w.Write([]byte(`[{"id":1,"name":"Coat"}]`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not Found"}`))
	}
}

func (f *fakeService) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seenAuth...)
}

// newTestServer serves the wired relay in front of a fake backend service.
func newTestServer(t *testing.T, corsOrigins []string, limiters map[string]middleware.Limiter) (*httptest.Server, *fakeService) {
	t.Helper()

	fake := &fakeService{}
	backend := httptest.NewServer(fake)
	t.Cleanup(backend.Close)

	store := cache.New(5 * time.Minute)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{BackendURL: backend.URL, CookieSecure: false}
	h := handlers.NewHandler(cfg, store)

	server := httptest.NewServer(handlers.NewServeMux(h, corsOrigins, limiters))
	t.Cleanup(server.Close)
	return server, fake
}
