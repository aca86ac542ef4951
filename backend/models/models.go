// ABOUTME: API envelopes shared by every handler
// ABOUTME: Error and health payloads in the shape the web client expects

package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// HealthResponse reports which upstream integrations are wired.
// Each field is "ok" or "not_configured".
type HealthResponse struct {
	Backend string `json:"backend"`
	TryOn   string `json:"tryon"`
	Weather string `json:"weather"`
	Storage string `json:"storage"`
	Cache   string `json:"cache"`
}
