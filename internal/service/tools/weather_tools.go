package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/providers/weather"
)

const (
	ToolCurrentWeather = "get_current_weather"
	ToolForecast       = "get_forecast"
)

const currentWeatherSchema = `
{
  "type": "object",
  "properties": {
    "city": { "type": "string", "description": "City name, e.g. Chennai" },
    "units": { "type": "string", "description": "metric or imperial" }
  },
  "required": ["city"]
}
`

const forecastSchema = `
{
  "type": "object",
  "properties": {
    "city": { "type": "string", "description": "City name, e.g. Chennai" },
    "days": { "type": "integer", "description": "Days ahead, 1-5, default 3" },
    "units": { "type": "string", "description": "metric or imperial" }
  },
  "required": ["city"]
}
`

// WeatherProvider is the outbound collaborator behind both weather tools.
type WeatherProvider interface {
	Current(ctx context.Context, city string) (*weather.Current, error)
	Forecast(ctx context.Context, city string, days int) (*weather.Forecast, error)
}

type Weather struct {
	provider WeatherProvider
}

func NewWeather(provider WeatherProvider) *Weather {
	return &Weather{provider: provider}
}

// RegisterAll adds the weather tools to the registry.
func (w *Weather) RegisterAll(reg *Registry) {
	reg.Register(Definition{
		Name:        ToolCurrentWeather,
		Description: "Get current weather conditions for a city: temperature, humidity, wind, description.",
		Schema:      json.RawMessage(currentWeatherSchema),
		Handler:     w.currentWeather,
	})
	reg.Register(Definition{
		Name:        ToolForecast,
		Description: "Get the daily weather forecast for a city for the next 1-5 days.",
		Schema:      json.RawMessage(forecastSchema),
		Handler:     w.forecast,
	})
}

func (w *Weather) currentWeather(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	current, err := w.provider.Current(ctx, input.City)
	if err != nil {
		return nil, mapProviderError(ToolCurrentWeather, err)
	}
	return json.Marshal(current)
}

func (w *Weather) forecast(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var input struct {
		City string `json:"city"`
		Days int    `json:"days"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Days == 0 {
		input.Days = 3
	}

	forecast, err := w.provider.Forecast(ctx, input.City, input.Days)
	if err != nil {
		return nil, mapProviderError(ToolForecast, err)
	}
	return json.Marshal(forecast)
}

func mapProviderError(tool string, err error) error {
	switch {
	case errors.Is(err, weather.ErrCityNotFound):
		return &core.ToolError{Tool: tool, Kind: core.FailNotFound, Message: err.Error()}
	case errors.Is(err, weather.ErrRateLimited):
		return &core.ToolError{Tool: tool, Kind: core.FailRateLimited, Message: err.Error()}
	default:
		return &core.ToolError{Tool: tool, Kind: core.FailUpstreamUnavailable, Message: err.Error()}
	}
}
