// Command ecmctl manages the ECM catalogue from the command line: bulk
// imports from files, tag scans and the remote feed, exports, and the
// mining queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/ecmcatalog/internal/app"
	"github.com/ewilliams-labs/ecmcatalog/internal/config"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
)

var (
	configPath string
	outFormat  string
)

var rootCmd = &cobra.Command{
	Use:           "ecmctl",
	Short:         "Manage and mine the ECM catalogue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $CONFIG_PATH or ./ecm.yaml)")
	rootCmd.PersistentFlags().StringVar(&outFormat, "format", "json", "Output format (json, yaml)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console", Caller: cfg.Logging.Caller})
	return cfg, nil
}

// withApp opens the configured storage for the duration of fn.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("failed to close storage")
		}
	}()
	return fn(a)
}
