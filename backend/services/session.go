// ABOUTME: Login session handling for the backend-issued login_token
// ABOUTME: Reads the token from cookie or bearer header and caches the resolved user profile

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/models"
)

const (
	// CookieName holds the opaque token issued by the backend at login.
	CookieName = "login_token"
	// CookieMaxAge is 100 days in seconds.
	CookieMaxAge = 8640000

	profileTTL = 60 * time.Second
)

// TokenFromRequest returns the session token, preferring an explicit
// Authorization bearer header over the login_token cookie.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// SessionService issues the login cookie and resolves tokens to users
type SessionService struct {
	store   cache.Store
	backend *BackendClient
	secure  bool
	ttl     time.Duration
	sfGroup singleflight.Group
}

// NewSessionService creates a session service. secure controls the cookie's
// Secure attribute and should only be off for plain-HTTP local development.
func NewSessionService(store cache.Store, backend *BackendClient, secure bool) *SessionService {
	return &SessionService{
		store:   store,
		backend: backend,
		secure:  secure,
		ttl:     profileTTL,
	}
}

// SessionCookie builds the cookie set after a successful login.
func (s *SessionService) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ClearCookie expires the login cookie immediately.
func (s *SessionService) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// CurrentUser resolves token to its user via /users/me. Profiles are cached
// briefly under a hash of the token so the raw token never becomes a cache key.
func (s *SessionService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	key := profileKey(token)

	var cached models.User
	if ok, err := s.store.Get(ctx, key, &cached); err != nil {
		slog.Warn("Profile cache read failed", "error", err)
	} else if ok {
		return &cached, nil
	}

	var timeout time.Duration
	if s.backend != nil {
		timeout = clientTimeout(s.backend.HTTPClient())
	}
	v, err := shareCall(ctx, &s.sfGroup, key, timeout, func(ctx context.Context) (interface{}, error) {
		user, err := s.backend.CurrentUser(ctx, token)
		if err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, key, user, s.ttl); err != nil {
			slog.Warn("Profile cache write failed", "error", err)
		}
		return user, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.User), nil
}

// Forget drops the cached profile for token, used on logout.
func (s *SessionService) Forget(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.store.Delete(ctx, profileKey(token)); err != nil {
		slog.Warn("Profile cache delete failed", "error", err)
	}
}

func profileKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "profile:" + hex.EncodeToString(sum[:])
}
