package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ewilliams-labs/ecmcatalog/internal/app"
	"github.com/ewilliams-labs/ecmcatalog/internal/config"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

func main() {
	// 1. Configuration: defaults, then ecm.yaml or CONFIG_PATH, then ECM_* env.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage, core services and adapters.
	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close storage")
		}
	}()

	// 3. Optional seed document.
	if cfg.Seed.Path != "" {
		if _, err := a.Seed(ctx, cfg.Seed.Path); err != nil {
			logging.Error().Err(err).Str("path", cfg.Seed.Path).Msg("seed import failed")
			return
		}
	}

	// 4. Serve until SIGINT or SIGTERM.
	if err := a.Run(ctx); err != nil {
		logging.Error().Err(err).Msg("server stopped with error")
		return
	}
	logging.Info().Msg("shut down cleanly")
}
