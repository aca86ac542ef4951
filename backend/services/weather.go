// ABOUTME: OpenWeatherMap adapter for current conditions, forecast and reverse geocoding
// ABOUTME: Caches results per rounded coordinate and degrades to fixed fallback weather

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fitcheck/fitcheck/backend/cache"
	"github.com/fitcheck/fitcheck/backend/models"
)

const weatherCacheTTL = 10 * time.Minute

var errWeatherNotConfigured = errors.New("WEATHER_API_KEY is not set")

// WeatherClient wraps the OpenWeatherMap APIs
type WeatherClient struct {
	baseURL    string
	apiKey     string
	defaultLat float64
	defaultLon float64
	store      cache.Store
	httpClient *http.Client
	sfGroup    singleflight.Group
}

func NewWeatherClient(baseURL, apiKey string, defaultLat, defaultLon float64, store cache.Store) *WeatherClient {
	return &WeatherClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		defaultLat: defaultLat,
		defaultLon: defaultLon,
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (w *WeatherClient) SetHTTPClient(client *http.Client) {
	w.httpClient = client
}

func (w *WeatherClient) Configured() bool {
	return w != nil && w.apiKey != ""
}

// Coordinates parses lat/lon query values, falling back to the configured
// default location when either is missing, NaN or out of range.
func (w *WeatherClient) Coordinates(rawLat, rawLon string) (float64, float64) {
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil || math.IsNaN(lat) || math.IsNaN(lon) ||
		math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return w.defaultLat, w.defaultLon
	}
	return lat, lon
}

type owmCondition struct {
	Main string `json:"main"`
}

type owmCurrent struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []owmCondition `json:"weather"`
}

type owmForecast struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

type owmPlace struct {
	Name    string `json:"name"`
	State   string `json:"state,omitempty"`
	Country string `json:"country"`
}

// Current returns current conditions at lat/lon, or the fallback weather.
func (w *WeatherClient) Current(ctx context.Context, lat, lon float64) models.Weather {
	var out models.Weather
	err := w.cached(ctx, "current", lat, lon, &out, func(ctx context.Context) (interface{}, error) {
		var raw owmCurrent
		if err := w.get(ctx, "/data/2.5/weather", lat, lon, &raw); err != nil {
			return nil, err
		}
		return models.Weather{
			Temperature: math.Round(raw.Main.Temp),
			Condition:   conditionOf(raw.Weather),
			Location:    raw.Name,
		}, nil
	})
	if err != nil {
		w.logFallback("current", err)
		return models.FallbackWeather()
	}
	return out
}

// Forecast returns the 3-hourly forecast at lat/lon.
func (w *WeatherClient) Forecast(ctx context.Context, lat, lon float64) models.Forecast {
	var out models.Forecast
	err := w.cached(ctx, "forecast", lat, lon, &out, func(ctx context.Context) (interface{}, error) {
		var raw owmForecast
		if err := w.get(ctx, "/data/2.5/forecast", lat, lon, &raw); err != nil {
			return nil, err
		}
		forecast := models.Forecast{Location: raw.City.Name, Entries: make([]models.ForecastEntry, 0, len(raw.List))}
		for _, e := range raw.List {
			forecast.Entries = append(forecast.Entries, models.ForecastEntry{
				Time:        e.DtTxt,
				Temperature: math.Round(e.Main.Temp),
				Condition:   conditionOf(e.Weather),
			})
		}
		return forecast, nil
	})
	if err != nil {
		w.logFallback("forecast", err)
		fb := models.FallbackWeather()
		return models.Forecast{Location: fb.Location, Entries: []models.ForecastEntry{}, Fallback: true}
	}
	return out
}

// ReverseGeocode names the place at lat/lon ("Brooklyn, New York, US").
func (w *WeatherClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	var out string
	err := w.cached(ctx, "geo", lat, lon, &out, func(ctx context.Context) (interface{}, error) {
		var places []owmPlace
		if err := w.get(ctx, "/geo/1.0/reverse", lat, lon, &places, "limit", "1"); err != nil {
			return nil, err
		}
		if len(places) == 0 {
			return nil, fmt.Errorf("no place found at %.2f,%.2f", lat, lon)
		}
		parts := []string{places[0].Name}
		if places[0].State != "" {
			parts = append(parts, places[0].State)
		}
		if places[0].Country != "" {
			parts = append(parts, places[0].Country)
		}
		return strings.Join(parts, ", "), nil
	})
	return out, err
}

// cached serves kind at the rounded coordinate from the store, otherwise
// runs fetch once per key and stores the result.
func (w *WeatherClient) cached(ctx context.Context, kind string, lat, lon float64, dst interface{}, fetch func(context.Context) (interface{}, error)) error {
	if !w.Configured() {
		return errWeatherNotConfigured
	}

	key := fmt.Sprintf("weather:%s:%.2f:%.2f", kind, lat, lon)
	if ok, err := w.store.Get(ctx, key, dst); err == nil && ok {
		return nil
	}

	v, err := shareCall(ctx, &w.sfGroup, key, clientTimeout(w.httpClient), func(ctx context.Context) (interface{}, error) {
		result, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if err := w.store.Set(ctx, key, result, weatherCacheTTL); err != nil {
			slog.Warn("Weather cache write failed", "error", err)
		}
		return result, nil
	})
	if err != nil {
		return err
	}

	// Round-trip through JSON so every kind decodes into its caller's type
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func (w *WeatherClient) get(ctx context.Context, path string, lat, lon float64, out interface{}, extra ...string) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("appid", w.apiKey)
	q.Set("units", "imperial")
	for i := 0; i+1 < len(extra); i += 2 {
		q.Set(extra[i], extra[i+1])
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, JoinURL(w.baseURL, path)+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (w *WeatherClient) logFallback(kind string, err error) {
	if errors.Is(err, errWeatherNotConfigured) {
		slog.Debug("Weather not configured, serving fallback", "kind", kind)
		return
	}
	slog.Warn("Weather lookup failed, serving fallback", "kind", kind, "error", err)
}

func conditionOf(conds []owmCondition) string {
	if len(conds) == 0 {
		return "unknown"
	}
	return strings.ToLower(conds[0].Main)
}
