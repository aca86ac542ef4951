// ABOUTME: Weather handlers for the closet home screen
// ABOUTME: Current conditions, forecast and place name at the requested or default coordinates

package handlers

import (
	"log/slog"
	"net/http"
)

func (h *Handler) Weather(w http.ResponseWriter, r *http.Request) {
	lat, lon := h.weather.Coordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	h.writeJSON(w, http.StatusOK, h.weather.Current(r.Context(), lat, lon))
}

func (h *Handler) WeatherForecast(w http.ResponseWriter, r *http.Request) {
	lat, lon := h.weather.Coordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	h.writeJSON(w, http.StatusOK, h.weather.Forecast(r.Context(), lat, lon))
}

// WeatherLocation names the place at the coordinates. Lookup failures answer
// 404 so the UI can keep its own label.
func (h *Handler) WeatherLocation(w http.ResponseWriter, r *http.Request) {
	lat, lon := h.weather.Coordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))

	name, err := h.weather.ReverseGeocode(r.Context(), lat, lon)
	if err != nil {
		slog.Debug("Reverse geocode failed", "request_id", requestID(r), "error", err)
		h.writeErrorDetails(w, "Location not found", err.Error(), http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"location": name,
		"lat":      lat,
		"lon":      lon,
	})
}
