package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/nimbus/pkg/log"
)

// DriverConfig configures the optional reasoning driver. When Enabled is
// false, or the API key is empty, the agent runs on the deterministic planner
// alone.
type DriverConfig struct {
	Enabled bool          `env:"NIMBUS_DRIVER_ENABLED" envDefault:"false"`
	BaseURL string        `env:"NIMBUS_DRIVER_BASE_URL" envDefault:"https://openrouter.ai/api"`
	APIKey  string        `env:"NIMBUS_DRIVER_API_KEY"`
	Model   string        `env:"NIMBUS_DRIVER_MODEL" envDefault:"openai/gpt-4o-mini"`
	Timeout time.Duration `env:"NIMBUS_DRIVER_TIMEOUT" envDefault:"15s"`
}

func NewDriverConfig(ctx context.Context) *DriverConfig {
	c := &DriverConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Driver config")
	}
	return c
}

func (c DriverConfig) IsUsable() bool {
	return c.Enabled && c.APIKey != ""
}
