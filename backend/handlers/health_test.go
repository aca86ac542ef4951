// ABOUTME: Tests for health and weather handlers
// ABOUTME: Verifies integration status reporting and weather fallbacks without an API key

package handlers

import (
	"net/http"
	"testing"

	"github.com/fitcheck/fitcheck/backend/config"
	"github.com/fitcheck/fitcheck/backend/models"
)

func TestHealth_NothingConfigured(t *testing.T) {
	h := newTestHandler(t, nil)
	rr := doJSON(t, newTestMux(h), http.MethodGet, "/api/health", "", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp models.HealthResponse
	decodeBody(t, rr, &resp)
	want := models.HealthResponse{
		Backend: "not_configured",
		TryOn:   "not_configured",
		Weather: "not_configured",
		Storage: "not_configured",
		Cache:   "ok",
	}
	if resp != want {
		t.Errorf("Expected %+v, got %+v", want, resp)
	}
}

func TestHealth_Configured(t *testing.T) {
	h := newTestHandler(t, &config.Config{
		BackendURL:    "http://backend",
		TryOnAPIURL:   "http://tryon",
		WeatherAPIKey: "k",
	})
	rr := doJSON(t, newTestMux(h), http.MethodGet, "/api/health", "", nil)

	var resp models.HealthResponse
	decodeBody(t, rr, &resp)
	if resp.Backend != "ok" || resp.TryOn != "ok" || resp.Weather != "ok" || resp.Storage != "not_configured" {
		t.Errorf("Unexpected health %+v", resp)
	}
}

func TestWeather_FallbackWithoutKey(t *testing.T) {
	h := newTestHandler(t, &config.Config{WeatherDefaultLat: 40.7, WeatherDefaultLon: -74})
	mux := newTestMux(h)

	rr := doJSON(t, mux, http.MethodGet, "/api/weather?lat=abc", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var weather models.Weather
	decodeBody(t, rr, &weather)
	if weather != models.FallbackWeather() {
		t.Errorf("Expected fallback weather, got %+v", weather)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/weather/forecast", "", nil)
	var forecast models.Forecast
	decodeBody(t, rr, &forecast)
	if !forecast.Fallback || forecast.Entries == nil {
		t.Errorf("Expected fallback forecast with empty entries, got %+v", forecast)
	}

	rr = doJSON(t, mux, http.MethodGet, "/api/weather/location?lat=40.7&lon=-74", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without an API key, got %d", rr.Code)
	}
}
