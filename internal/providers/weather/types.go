package weather

import "errors"

// Provider failure modes, mapped onto tool failure kinds by the tool layer.
var (
	ErrCityNotFound = errors.New("city not found")
	ErrRateLimited  = errors.New("rate limited by weather provider")
	ErrUnavailable  = errors.New("weather provider unavailable")
)

// Current is the normalized current-conditions payload.
type Current struct {
	City         string  `json:"city"`
	TemperatureC float64 `json:"temperature_c"`
	FeelsLikeC   float64 `json:"feels_like_c"`
	Humidity     int     `json:"humidity_percent"`
	WindSpeedMPS float64 `json:"wind_speed_mps"`
	Description  string  `json:"description"`
}

// ForecastDay is one aggregated day of the forecast.
type ForecastDay struct {
	Date        string  `json:"date"`
	TempMinC    float64 `json:"temp_min_c"`
	TempMaxC    float64 `json:"temp_max_c"`
	Description string  `json:"description"`
}

// Forecast is the normalized multi-day forecast payload.
type Forecast struct {
	City string        `json:"city"`
	Days []ForecastDay `json:"days"`
}
