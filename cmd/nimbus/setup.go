package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/internal/providers/llm"
	"github.com/sandevgo/nimbus/internal/providers/weather"
	"github.com/sandevgo/nimbus/internal/service/agent"
	"github.com/sandevgo/nimbus/internal/service/memory"
	"github.com/sandevgo/nimbus/internal/service/tools"
	"github.com/sandevgo/nimbus/internal/storage/sqlite"
	"github.com/sandevgo/nimbus/internal/transport/httpapi"
	"github.com/sandevgo/nimbus/pkg/log"
	"github.com/sandevgo/nimbus/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	weatherCfg := config.NewWeatherConfig(ctx)
	driverCfg := config.NewDriverConfig(ctx)

	// 2. Storage
	db, mem, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	// 3. Weather provider & tool registry
	registry := tools.NewRegistry()
	tools.NewWeather(weather.NewClient(weatherCfg)).RegisterAll(registry)

	// 4. Reasoning driver (optional; the deterministic planner covers its
	// absence)
	var driver core.Driver
	if driverCfg.IsUsable() {
		driver = llm.NewDriver(driverCfg)
		logger.Info().Str("model", driverCfg.Model).Msg("reasoning driver enabled")
	} else {
		logger.Info().Msg("reasoning driver disabled, running deterministic planner only")
	}

	// 5. Agent Service
	orchestrator := agent.NewOrchestrator(appCfg, registry, driver, mem)

	// 6. Transport
	services = append(services, httpapi.NewServer(appCfg, orchestrator, mem))

	return services
}

func initStorage(ctx context.Context, cfg *config.AppConfig) (*sql.DB, *memory.Service, error) {
	if err := os.MkdirAll(cfg.GetRuntimePath(), 0o755); err != nil {
		return nil, nil, err
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}

	mem := memory.NewService(
		cfg,
		sqlite.NewFactsRepo(db),
		sqlite.NewHistoryRepo(db),
		sqlite.NewProfilesRepo(db),
	)
	return db, mem, nil
}

// newMemoryOnly wires just the pieces the clear subcommand needs.
func newMemoryOnly(ctx context.Context) (*config.AppConfig, *sql.DB, *memory.Service, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, nil, nil, err
	}

	appCfg := config.NewAppConfig(ctx)
	db, mem, err := initStorage(ctx, appCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return appCfg, db, mem, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
