// ABOUTME: Weather models returned to the closet UI
// ABOUTME: Reduced views of OpenWeatherMap current, forecast and reverse-geocode payloads

package models

type Weather struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Location    string  `json:"location"`
	Fallback    bool    `json:"fallback,omitempty"`
}

type ForecastEntry struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
}

type Forecast struct {
	Location string          `json:"location"`
	Entries  []ForecastEntry `json:"entries"`
	Fallback bool            `json:"fallback,omitempty"`
}

// FallbackWeather is served when no API key is configured or the upstream fails.
func FallbackWeather() Weather {
	return Weather{Temperature: 72, Condition: "sunny", Location: "San Francisco", Fallback: true}
}
