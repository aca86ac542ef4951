// ABOUTME: Configuration loader for the FitCheck relay service
// ABOUTME: Loads settings from the environment (and an optional .env file) with defaults

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Fallback policies for an eBay selection without eBay authorization.
const (
	EbayFallbackFacebook = "facebook"
	EbayFallbackReject   = "reject"
)

type Config struct {
	// Server
	Port               string
	CacheTTL           int      // seconds, default for general cache
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)
	CookieSecure       bool     // Set Secure flag on the login_token cookie (default: true)
	RedisURL           string   // optional shared cache

	// Rate Limiting
	RateLimitEnabled bool
	RateLimitAuth    int // Requests per minute for login/logout (default: 5)
	RateLimitWrite   int // Requests per minute for listing/try-on writes (default: 30)
	RateLimitDefault int // Requests per minute for everything else (default: 300)

	// Backend service
	BackendURL      string        // empty = relay answers 500 on every call
	BackendTimeout  time.Duration // per-call timeout
	BackendAllProxy string        // optional ssh+socks5 jumpbox

	// Virtual try-on
	TryOnAPIURL       string
	TryOnAPIKey       string
	TryOnPollInterval time.Duration
	TryOnMaxAttempts  int
	TryOnTimeout      time.Duration

	// Weather
	WeatherAPIURL     string
	WeatherAPIKey     string
	WeatherDefaultLat float64
	WeatherDefaultLon float64

	// Object storage for try-on uploads (optional)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// Listing workflow
	ListingEbayFallback  string
	ListingWebsiteLink   string
	ListingRedirectDelay time.Duration
	EbayItemURL          string
}

// BackendConfigured returns true if a backend service URL is set
func (c *Config) BackendConfigured() bool {
	return c.BackendURL != ""
}

// TryOnConfigured returns true if the try-on inference API is set
func (c *Config) TryOnConfigured() bool {
	return c.TryOnAPIURL != ""
}

// StorageConfigured returns true if object storage credentials are set
func (c *Config) StorageConfigured() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CacheTTL:           getEnvInt("CACHE_TTL", 300),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		RedisURL:           os.Getenv("REDIS_URL"),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    getEnvInt("RATE_LIMIT_AUTH", 5),
		RateLimitWrite:   getEnvInt("RATE_LIMIT_WRITE", 30),
		RateLimitDefault: getEnvInt("RATE_LIMIT_DEFAULT", 300),

		BackendURL:      ensureScheme(os.Getenv("BACKEND_URL")),
		BackendTimeout:  getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendAllProxy: os.Getenv("BACKEND_ALL_PROXY"),

		TryOnAPIURL:       ensureScheme(os.Getenv("TRYON_API_URL")),
		TryOnAPIKey:       os.Getenv("TRYON_API_KEY"),
		TryOnPollInterval: getEnvDuration("TRYON_POLL_INTERVAL", 2*time.Second),
		TryOnMaxAttempts:  getEnvInt("TRYON_MAX_ATTEMPTS", 60),
		TryOnTimeout:      getEnvDuration("TRYON_TIMEOUT", 3*time.Minute),

		WeatherAPIURL:     ensureScheme(getEnv("WEATHER_API_URL", "https://api.openweathermap.org")),
		WeatherAPIKey:     os.Getenv("WEATHER_API_KEY"),
		WeatherDefaultLat: getEnvFloat("WEATHER_DEFAULT_LAT", 40.7128),
		WeatherDefaultLon: getEnvFloat("WEATHER_DEFAULT_LON", -74.0060),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    getEnv("S3_BUCKET", "fitcheck-tryon"),
		S3UseSSL:    getEnvBool("S3_USE_SSL", true),

		ListingEbayFallback:  strings.ToLower(getEnv("LISTING_EBAY_FALLBACK", EbayFallbackFacebook)),
		ListingWebsiteLink:   getEnv("LISTING_WEBSITE_LINK", "https://www.fitcheck.fashion"),
		ListingRedirectDelay: getEnvDuration("LISTING_REDIRECT_DELAY", 3*time.Second),
		EbayItemURL:          getEnv("EBAY_ITEM_URL", "https://www.ebay.com/itm/"),
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"RATE_LIMIT_WRITE", cfg.RateLimitWrite},
		{"RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	if cfg.ListingEbayFallback != EbayFallbackFacebook && cfg.ListingEbayFallback != EbayFallbackReject {
		return nil, fmt.Errorf("LISTING_EBAY_FALLBACK must be %q or %q, got %q",
			EbayFallbackFacebook, EbayFallbackReject, cfg.ListingEbayFallback)
	}
	if cfg.TryOnMaxAttempts < 1 {
		return nil, fmt.Errorf("TRYON_MAX_ATTEMPTS must be at least 1, got %d", cfg.TryOnMaxAttempts)
	}
	if cfg.TryOnPollInterval <= 0 {
		return nil, fmt.Errorf("TRYON_POLL_INTERVAL must be positive, got %s", cfg.TryOnPollInterval)
	}

	// Storage is all-or-nothing
	storageSet := 0
	for _, v := range []string{cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey} {
		if v != "" {
			storageSet++
		}
	}
	if storageSet != 0 && storageSet != 3 {
		return nil, fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("2s") or bare integers as seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
