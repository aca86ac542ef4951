// ABOUTME: Table-driven relay forwarding /api/... requests to the backend service
// ABOUTME: Rewrites auth from the login cookie, re-serializes JSON or streams uploads, wraps non-JSON replies

package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/fitcheck/fitcheck/backend/middleware"
	"github.com/fitcheck/fitcheck/backend/models"
	"github.com/fitcheck/fitcheck/backend/services"
)

// BodyMode selects how a relay route forwards request bodies
type BodyMode int

const (
	// BodyJSON validates and re-serializes the body as JSON
	BodyJSON BodyMode = iota
	// BodyStream passes the body through untouched (multipart uploads)
	BodyStream
)

// RelayRoute maps an inbound path prefix onto a backend path prefix
type RelayRoute struct {
	Name        string
	Prefix      string
	Target      string
	Methods     []string // empty allows every method
	RequireAuth bool
	Body        BodyMode
}

// DefaultRelayRoutes is the routing table of the backend relay.
func DefaultRelayRoutes() []RelayRoute {
	return []RelayRoute{
		{Name: "upload-image", Prefix: "/api/upload-image", Target: "/upload-image", Methods: []string{http.MethodPost}, Body: BodyStream},
		{Name: "upload-new-image", Prefix: "/api/upload-new-image", Target: "/upload-new-image", Methods: []string{http.MethodPost}, Body: BodyStream},
		{Name: "upload-new-outfit", Prefix: "/api/upload-new-outfit", Target: "/upload-new-outfit", Methods: []string{http.MethodPost}, Body: BodyStream},
		{Name: "ebay", Prefix: "/api/ebay/", Target: "/ebay/"},
		{Name: "facebook", Prefix: "/api/facebook/", Target: "/facebook/"},
		{Name: "resale-listings", Prefix: "/api/resale_listings", Target: "/resale_listings", RequireAuth: true},
		{Name: "outfit-wear-history", Prefix: "/api/outfit_wear_history", Target: "/outfit_wear_history",
			Methods: []string{http.MethodGet, http.MethodDelete}, RequireAuth: true},
		{Name: "generic", Prefix: "/api/", Target: "/"},
	}
}

// Headers that describe the client connection rather than the request.
var skipRequestHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Cookie":              true,
	"Authorization":       true,
	"Host":                true,
	"Content-Length":      true,
	"Accept-Encoding":     true,
	"Origin":              true,
}

var errBodyTooLarge = errors.New("Request body too large")

var forwardResponseHeaders = []string{
	"Cache-Control",
	"ETag",
	"Last-Modified",
	"Location",
	"Retry-After",
}

// Relay forwards requests to the backend service
type Relay struct {
	backendURL string
	client     *http.Client
	routes     []RelayRoute
}

// NewRelay creates a relay. Routes are matched longest prefix first.
func NewRelay(backendURL string, client *http.Client, routes []RelayRoute) *Relay {
	sorted := slices.Clone(routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	if client == nil {
		client = http.DefaultClient
	}
	return &Relay{backendURL: backendURL, client: client, routes: sorted}
}

// Match returns the route serving path. Prefixes ending in "/" match any
// path below them; others match the exact path or a sub-path.
func (rl *Relay) Match(path string) (RelayRoute, bool) {
	for _, route := range rl.routes {
		if strings.HasSuffix(route.Prefix, "/") {
			if strings.HasPrefix(path, route.Prefix) {
				return route, true
			}
			continue
		}
		if path == route.Prefix || strings.HasPrefix(path, route.Prefix+"/") {
			return route, true
		}
	}
	return RelayRoute{}, false
}

// TargetURL is the backend URL for r under route, query string included.
func (rl *Relay) TargetURL(route RelayRoute, r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.EscapedPath(), route.Prefix)
	path := route.Target
	if rest != "" {
		path += "/" + rest
	}

	target := services.JoinURL(rl.backendURL, path)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rl.backendURL == "" {
		writeRelayError(w, services.ErrBackendNotConfigured.Error(), "", http.StatusInternalServerError)
		return
	}

	route, ok := rl.Match(r.URL.Path)
	if !ok {
		writeRelayError(w, "Not found", "", http.StatusNotFound)
		return
	}

	if len(route.Methods) > 0 && !slices.Contains(route.Methods, r.Method) {
		w.Header().Set("Allow", strings.Join(route.Methods, ", "))
		writeRelayError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		if token := services.TokenFromRequest(r); token != "" {
			authorization = "Bearer " + token
		}
	}
	if route.RequireAuth && authorization == "" {
		writeRelayError(w, "Authentication required", "", http.StatusUnauthorized)
		return
	}

	body, contentLength, err := relayBody(w, r, route)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeRelayError(w, err.Error(), "", status)
		return
	}

	target := rl.TargetURL(route, r)
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		writeRelayError(w, "Failed to build backend request", err.Error(), http.StatusInternalServerError)
		return
	}
	out.ContentLength = contentLength

	for name, values := range r.Header {
		if skipRequestHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		out.Header[name] = slices.Clone(values)
	}
	if authorization != "" {
		out.Header.Set("Authorization", authorization)
	}
	if route.Body == BodyJSON && body != nil {
		out.Header.Set("Content-Type", "application/json")
	}
	if id := middleware.RequestID(r.Context()); id != "" {
		out.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := rl.client.Do(out)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeRelayError(w, errBodyTooLarge.Error(), "", http.StatusRequestEntityTooLarge)
			return
		}
		if r.Context().Err() != nil {
			slog.Debug("Client went away before backend answered", "route", route.Name, "request_id", middleware.RequestID(r.Context()))
		} else {
			slog.Error("Relay request failed", "route", route.Name, "request_id", middleware.RequestID(r.Context()), "error", err)
		}
		writeRelayError(w, "Failed to reach backend", err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	slog.Debug("Relayed request",
		"route", route.Name,
		"method", r.Method,
		"path", services.SanitizeForLog(r.URL.Path),
		"status", resp.StatusCode,
		"request_id", middleware.RequestID(r.Context()))

	rl.writeResponse(w, resp)
}

// relayBody prepares the outbound body. JSON routes re-serialize any body on
// methods other than GET and HEAD; stream routes pass it through. Bodies over
// the size limits return errBodyTooLarge.
func relayBody(w http.ResponseWriter, r *http.Request, route RelayRoute) (io.Reader, int64, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, 0, nil
	}

	if route.Body == BodyStream {
		if r.ContentLength > maxUploadSize {
			return nil, 0, errBodyTooLarge
		}
		return http.MaxBytesReader(w, r.Body, maxUploadSize), r.ContentLength, nil
	}

	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return nil, 0, nil
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, 0, errBodyTooLarge
		}
		return nil, 0, errors.New("Failed to read request body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, 0, nil
	}

	var payload interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, 0, errors.New("Invalid JSON body")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, errors.New("Invalid JSON body")
	}
	return bytes.NewReader(encoded), int64(len(encoded)), nil
}

func (rl *Relay) writeResponse(w http.ResponseWriter, resp *http.Response) {
	for _, name := range forwardResponseHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			slog.Warn("Relay response copy interrupted", "error", err)
		}
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRequestBodySize))
	if err != nil {
		writeRelayError(w, "Failed to read backend response", err.Error(), http.StatusInternalServerError)
		return
	}
	writeUpstreamBody(w, resp.StatusCode, data)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func writeRelayError(w http.ResponseWriter, message, details string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message, Details: details, Code: code})
}
