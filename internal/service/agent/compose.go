package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/providers/weather"
	"github.com/sandevgo/nimbus/internal/service/tools"
)

// composeAnswer renders a successful observation into answer text, applying
// the requested unit system at presentation time.
func composeAnswer(obs core.Observation, units string) string {
	switch obs.Tool {
	case tools.ToolCurrentWeather:
		var current weather.Current
		if err := json.Unmarshal(obs.Payload, &current); err != nil {
			return ""
		}
		return composeCurrent(current, units)
	case tools.ToolForecast:
		var forecast weather.Forecast
		if err := json.Unmarshal(obs.Payload, &forecast); err != nil {
			return ""
		}
		return composeForecast(forecast, units)
	default:
		return ""
	}
}

func composeCurrent(current weather.Current, units string) string {
	temp, unit := formatTemp(current.TemperatureC, units)
	wind := formatWind(current.WindSpeedMPS, units)
	return fmt.Sprintf("Current conditions in %s: %s, %s%s, humidity %d%%, wind %s.",
		current.City, current.Description, temp, unit, current.Humidity, wind)
}

func composeForecast(forecast weather.Forecast, units string) string {
	var parts []string
	for _, day := range forecast.Days {
		low, unit := formatTemp(day.TempMinC, units)
		high, _ := formatTemp(day.TempMaxC, units)
		parts = append(parts, fmt.Sprintf("%s %s %s to %s%s", day.Date, day.Description, low, high, unit))
	}
	return fmt.Sprintf("Forecast for %s: %s.", forecast.City, strings.Join(parts, "; "))
}

// composeDegraded produces the best-effort answer when the run ends without a
// successful observation. Never empty.
func composeDegraded(observations []core.Observation, city string) string {
	where := ""
	if city != "" {
		where = " for " + city
	}

	var last *core.Observation
	for i := range observations {
		if !observations[i].OK() {
			last = &observations[i]
		}
	}

	if last == nil {
		return "I couldn't answer that weather question" + where + ". Please try again with a city name."
	}

	switch last.FailKind {
	case core.FailNotFound:
		return "I couldn't find weather data" + where + ". Please check the city name and try again."
	case core.FailRateLimited:
		return "The weather service is limiting requests right now. Please try again in a moment."
	default:
		return "Live weather data is temporarily unavailable" + where + ". Please try again soon."
	}
}

// observationCity pulls the provider-resolved location out of a successful
// observation, used to remember the city the user actually asked about.
func observationCity(obs core.Observation) string {
	if !obs.OK() {
		return ""
	}
	var payload struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(obs.Payload, &payload); err != nil {
		return ""
	}
	return payload.City
}

func formatTemp(celsius float64, units string) (string, string) {
	if units == core.UnitsImperial {
		return fmt.Sprintf("%.1f", celsius*9/5+32), "°F"
	}
	return fmt.Sprintf("%.1f", celsius), "°C"
}

func formatWind(mps float64, units string) string {
	if units == core.UnitsImperial {
		return fmt.Sprintf("%.1f mph", mps*2.23694)
	}
	return fmt.Sprintf("%.1f m/s", mps)
}

// Markers that reveal the driver punted instead of answering; such output is
// rejected in favor of the tool-composed answer.
var driverFailureMarkers = []string{
	"unable to fetch",
	"technical issue",
	"knowledge cutoff",
	"don't have real-time",
	"do not have real-time",
	"cannot access",
	"can't access",
	"cannot execute tools",
	"check a weather website",
	"service unavailable",
}

func usableDriverAnswer(text string) bool {
	if text == "" || len(text) > 520 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, marker := range driverFailureMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	if strings.Contains(lowered, "http://") || strings.Contains(lowered, "https://") {
		return false
	}
	return true
}
