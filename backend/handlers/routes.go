// ABOUTME: Declarative route table for API endpoints
// ABOUTME: Defines all routes with their HTTP methods, handlers, session and rate-limit needs

package handlers

import "net/http"

// Rate limit tiers applied by main.
const (
	LimitDefault = "default"
	LimitAuth    = "auth"
	LimitWrite   = "write"
)

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method; empty matches every method
	Path    string           // ServeMux pattern path (e.g., "/api/listings/{clothing_item_id}")
	Handler http.HandlerFunc // Handler function
	Auth    bool             // Requires a login_token cookie or bearer token
	Limit   string           // Rate limit tier
}

// Pattern is the ServeMux pattern for the route.
func (rt Route) Pattern() string {
	if rt.Method == "" {
		return rt.Path
	}
	return rt.Method + " " + rt.Path
}

// Routes returns all API routes for registration. The relay catch-all comes
// last and serves every /api/ path without a dedicated handler.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health
		{Method: http.MethodGet, Path: "/api/health", Handler: h.Health, Limit: LimitDefault},

		// Session
		{Method: http.MethodPost, Path: "/api/login", Handler: h.Login, Limit: LimitAuth},
		{Method: http.MethodPost, Path: "/api/logout", Handler: h.Logout, Limit: LimitAuth},
		{Method: http.MethodGet, Path: "/api/me", Handler: h.Me, Limit: LimitDefault},

		// Listings
		{Method: http.MethodPost, Path: "/api/listings", Handler: h.CreateListing, Auth: true, Limit: LimitWrite},
		{Method: http.MethodPatch, Path: "/api/listings/{clothing_item_id}", Handler: h.UpdateListing, Auth: true, Limit: LimitWrite},
		{Method: http.MethodGet, Path: "/api/ebay-auth-url", Handler: h.EbayAuthURL, Auth: true, Limit: LimitDefault},

		// Virtual try-on
		{Method: http.MethodPost, Path: "/api/virtual-try-on", Handler: h.CreateTryOn, Limit: LimitWrite},
		{Method: http.MethodGet, Path: "/api/virtual-try-on/{id}", Handler: h.TryOnStatus, Limit: LimitDefault},

		// Weather
		{Method: http.MethodGet, Path: "/api/weather", Handler: h.Weather, Limit: LimitDefault},
		{Method: http.MethodGet, Path: "/api/weather/forecast", Handler: h.WeatherForecast, Limit: LimitDefault},
		{Method: http.MethodGet, Path: "/api/weather/location", Handler: h.WeatherLocation, Limit: LimitDefault},

		// Closet
		{Method: http.MethodGet, Path: "/api/wear-history", Handler: h.WearHistory, Auth: true, Limit: LimitDefault},
		{Method: http.MethodPost, Path: "/api/outfits/{id}/log", Handler: h.LogOutfitWorn, Auth: true, Limit: LimitWrite},
		{Method: http.MethodGet, Path: "/api/user/clothing-items", Handler: h.ClothingItems, Auth: true, Limit: LimitDefault},

		// Backend relay
		{Path: "/api/", Handler: h.relay.ServeHTTP, Limit: LimitDefault},
	}
}
