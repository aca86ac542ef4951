// ABOUTME: Unit tests for rate limiting middleware
// ABOUTME: Tests the in-memory limiter, key extraction and the 429 response

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if allowed, _ := rl.Allow(ctx, "k"); !allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := rl.Allow(ctx, "k")
	if allowed {
		t.Fatal("Fourth request should be rejected")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("Expected retryAfter within the window, got %v", retryAfter)
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()

	rl.Allow(ctx, "a")
	if allowed, _ := rl.Allow(ctx, "b"); !allowed {
		t.Fatal("Key b should have its own quota")
	}
	if allowed, _ := rl.Allow(ctx, "a"); allowed {
		t.Fatal("Key a should be exhausted")
	}
}

func TestRateLimiter_WindowResets(t *testing.T) {
	rl := NewRateLimiter(1, 40*time.Millisecond)
	ctx := context.Background()

	rl.Allow(ctx, "k")
	if allowed, _ := rl.Allow(ctx, "k"); allowed {
		t.Fatal("Second request should be rejected")
	}

	time.Sleep(50 * time.Millisecond)

	if allowed, _ := rl.Allow(ctx, "k"); !allowed {
		t.Fatal("Request after the window should be allowed")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := NewRateLimiter(50, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 120; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := rl.Allow(context.Background(), "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("Expected exactly 50 allowed requests, got %d", allowed)
	}
}

func TestRateLimiter_SweepsExpiredWindows(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 99; i++ {
		rl.Allow(ctx, fmt.Sprintf("old-%d", i))
	}
	time.Sleep(20 * time.Millisecond)
	rl.Allow(ctx, "fresh")

	rl.mu.Lock()
	n := len(rl.windows)
	rl.mu.Unlock()
	if n != 1 {
		t.Errorf("Expected expired windows to be swept, %d remain", n)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"leftmost forwarded", "203.0.113.50, 10.0.0.1", "10.0.0.1:1234", "ip:203.0.113.50"},
		{"garbage forwarded", "not-an-ip", "10.0.0.1:1234", "ip:10.0.0.1"},
		{"no forwarded", "", "192.168.1.9:5555", "ip:192.168.1.9"},
		{"ipv6 remote", "", "[::1]:8080", "ip:::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTokenOrIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	if got := TokenOrIP(r); got != "ip:10.0.0.1" {
		t.Errorf("Expected IP fallback, got %q", got)
	}

	r.AddCookie(&http.Cookie{Name: "login_token", Value: "secret-token"})
	got := TokenOrIP(r)
	if !strings.HasPrefix(got, "session:") {
		t.Errorf("Expected session key, got %q", got)
	}
	if strings.Contains(got, "secret-token") {
		t.Errorf("Raw token leaked into key %q", got)
	}
}

func TestRateLimit_NilLimiterPassesThrough(t *testing.T) {
	called := 0
	h := RateLimit(nil, ClientIP)(func(w http.ResponseWriter, r *http.Request) { called++ })

	for i := 0; i < 5; i++ {
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if called != 5 {
		t.Errorf("Expected 5 calls, got %d", called)
	}
}

func TestRateLimit_EmptyKeyPassesThrough(t *testing.T) {
	called := 0
	h := RateLimit(NewRateLimiter(1, time.Minute), func(*http.Request) string { return "" })(
		func(w http.ResponseWriter, r *http.Request) { called++ })

	for i := 0; i < 3; i++ {
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if called != 3 {
		t.Errorf("Expected 3 calls, got %d", called)
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	h := RateLimit(NewRateLimiter(1, time.Minute), ClientIP)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	h(first, httptest.NewRequest(http.MethodPost, "/api/login", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", first.Code)
	}

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/login", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON error, got %q", ct)
	}

	var body map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Rate limit exceeded" || body["code"] != float64(429) {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestRedisLimiter(t *testing.T) {
	redisURL := os.Getenv("REDIS_TEST_URL")
	if redisURL == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Invalid REDIS_TEST_URL: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	name := fmt.Sprintf("test-%d", time.Now().UnixNano())
	l := NewRedisLimiter(client, name, 2, time.Second)

	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow(ctx, "k"); !ok {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
	ok, retry := l.Allow(ctx, "k")
	if ok {
		t.Fatal("Third request should be rejected")
	}
	if retry <= 0 || retry > time.Second {
		t.Errorf("Unexpected retry %v", retry)
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	l := NewRedisLimiter(client, "down", 1, time.Minute)
	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(context.Background(), "k"); !ok {
			t.Fatal("Expected requests to be allowed while Redis is down")
		}
	}
}
