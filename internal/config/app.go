package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/nimbus/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"NIMBUS_RUNTIME_PATH" envDefault:".nimbus"`
	HTTPAddr    string `env:"NIMBUS_HTTP_ADDR" envDefault:":8080"`

	// Agent loop
	StepBudget         int `env:"NIMBUS_STEP_BUDGET" envDefault:"4"`
	ContextWindowTurns int `env:"NIMBUS_CONTEXT_WINDOW_TURNS" envDefault:"8"`
	ContextTokenBudget int `env:"NIMBUS_CONTEXT_TOKEN_BUDGET" envDefault:"1500"`

	// Memory
	MemoryTopK      int  `env:"NIMBUS_MEMORY_TOP_K" envDefault:"6"`
	RememberDefault bool `env:"NIMBUS_REMEMBER_DEFAULT" envDefault:"true"`

	// Trace is withheld unless this flag AND the per-request flag are set.
	TraceEnabled bool `env:"NIMBUS_TRACE_ENABLED" envDefault:"false"`

	RequestTimeout time.Duration `env:"NIMBUS_REQUEST_TIMEOUT" envDefault:"30s"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetHTTPAddr() string { return c.HTTPAddr }

func (c AppConfig) GetRuntimePath() string { return c.RuntimePath }

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "nimbus.db")
}

func (c AppConfig) GetStepBudget() int { return c.StepBudget }

func (c AppConfig) GetContextWindowTurns() int { return c.ContextWindowTurns }

func (c AppConfig) GetContextTokenBudget() int { return c.ContextTokenBudget }

func (c AppConfig) GetMemoryTopK() int { return c.MemoryTopK }

func (c AppConfig) IsTraceEnabled() bool { return c.TraceEnabled }

func (c AppConfig) RememberByDefault() bool { return c.RememberDefault }
