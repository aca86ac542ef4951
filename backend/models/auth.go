// ABOUTME: Auth request/response models for the login_token cookie session
// ABOUTME: Mirrors the backend service's login and /users/me payloads

package models

// LoginRequest represents credentials for authentication
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned to the browser; it never carries the token
type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BackendLoginResponse is the backend service's /login payload.
// Credential failures arrive as status 200 with Error set and no User.
type BackendLoginResponse struct {
	Success bool         `json:"success"`
	User    *BackendUser `json:"user,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// BackendUser is a User as returned by /login, including the session token
type BackendUser struct {
	User
	LoginToken string `json:"login_token"`
}

// User is the closet owner as known to the backend service
type User struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	ClothingItems []ClothingItem `json:"clothing_items,omitempty"`
}

// MeResponse is the backend service's /users/me payload
type MeResponse struct {
	User User `json:"user"`
}
