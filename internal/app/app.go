// Package app wires configuration, storage, core services and adapters into
// a runnable service. Both the API server and the CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/badgerstore"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/catalogfile"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/feed"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/rest"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/sqlite"
	"github.com/ewilliams-labs/ecmcatalog/internal/config"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/ports"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/services"
	"github.com/ewilliams-labs/ecmcatalog/internal/logging"
	"github.com/ewilliams-labs/ecmcatalog/internal/supervisor"
	"github.com/ewilliams-labs/ecmcatalog/internal/worker"
)

const memoryPath = ":memory:"

// OpenRepository opens the configured storage backend.
func OpenRepository(cfg config.StorageConfig) (ports.CatalogRepository, error) {
	switch cfg.Driver {
	case "sqlite", "":
		path := cfg.Path
		if path == "" {
			path = memoryPath
		}
		return sqlite.NewAdapter(path)
	case "badger":
		path := cfg.Path
		if path == memoryPath {
			path = ""
		}
		return badgerstore.Open(path)
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Driver)
	}
}

// NewFeedClient builds the feed client from configuration.
func NewFeedClient(ctx context.Context, cfg config.FeedConfig) (*feed.Client, error) {
	return feed.NewClient(ctx, nil, feed.Config{
		URL:          cfg.URL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       cfg.Scopes,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		Backoff:      cfg.Backoff,
		Breaker:      feed.BreakerSettings{ConsecutiveFailures: cfg.BreakerFailures},
	})
}

// App holds the wired service.
type App struct {
	cfg     *config.Config
	Repo    ports.CatalogRepository
	Catalog *services.CatalogService
	Miner   *services.Miner
	Pool    *worker.Pool
	Feed    *feed.Client
	Handler http.Handler
}

// New opens storage and builds every component. Close releases storage.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := OpenRepository(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		Repo:    repo,
		Catalog: services.NewCatalogService(repo),
		Miner:   services.NewMiner(repo),
	}
	a.Pool = worker.NewPool(a.Catalog, cfg.Worker.Workers, cfg.Worker.QueueSize)

	opts := rest.Options{RateLimit: cfg.Server.RateLimit, CORSOrigins: cfg.Server.CORSOrigins}
	if cfg.Feed.Enabled() {
		client, err := NewFeedClient(ctx, cfg.Feed)
		if err != nil {
			_ = repo.Close()
			return nil, err
		}
		a.Feed = client
		opts.Feed = client
	}
	a.Handler = rest.NewHandler(a.Miner, a.Catalog, a.Pool, opts)

	logging.Info().
		Str("driver", cfg.Storage.Driver).
		Str("path", cfg.Storage.Path).
		Bool("feed", cfg.Feed.Enabled()).
		Msg("app initialized")
	return a, nil
}

// Seed imports the catalogue document at path synchronously.
func (a *App) Seed(ctx context.Context, path string) (services.ImportReport, error) {
	c, err := catalogfile.Load(path)
	if err != nil {
		return services.ImportReport{}, err
	}
	report, err := a.Catalog.ImportCatalogue(ctx, c)
	if err != nil {
		return report, err
	}
	logging.Info().
		Str("path", path).
		Int("saved", report.Saved()).
		Int("rejected", len(report.Rejected)).
		Msg("seed imported")
	return report, nil
}

// Run serves the API, the import pool and, when configured, the periodic
// feed sync until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: a.cfg.Server.ShutdownTimeout})

	tree.AddBackgroundService(a.Pool)
	if a.Feed != nil && a.cfg.Feed.Interval > 0 {
		tree.AddBackgroundService(supervisor.NewFeedSyncService(a.Feed, a.Pool, a.cfg.Feed.Interval))
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(supervisor.NewHTTPServerService(srv, a.cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", srv.Addr).Msg("ECM catalogue API is running")
	err := tree.Serve(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases storage.
func (a *App) Close() error {
	return a.Repo.Close()
}
