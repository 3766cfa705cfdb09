package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/nimbus/pkg/log"
)

type WeatherConfig struct {
	APIKey  string `env:"OPENWEATHER_API_KEY,required,notEmpty"`
	BaseURL string `env:"OPENWEATHER_BASE_URL" envDefault:"https://api.openweathermap.org"`
}

func NewWeatherConfig(ctx context.Context) *WeatherConfig {
	c := &WeatherConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Weather config")
	}
	return c
}
