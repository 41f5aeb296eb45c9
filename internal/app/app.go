// Package app wires the components into a running application and owns the
// bootstrap sequence.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/KirkDiggler/rpg-codex/internal/clients/datasource"
	"github.com/KirkDiggler/rpg-codex/internal/clients/wiki"
	"github.com/KirkDiggler/rpg-codex/internal/config"
	"github.com/KirkDiggler/rpg-codex/internal/errors"
	"github.com/KirkDiggler/rpg-codex/internal/fallback"
	"github.com/KirkDiggler/rpg-codex/internal/gateway"
	"github.com/KirkDiggler/rpg-codex/internal/orchestrators/datasync"
	"github.com/KirkDiggler/rpg-codex/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-codex/internal/redis"
	"github.com/KirkDiggler/rpg-codex/internal/repositories/storage"
	"github.com/KirkDiggler/rpg-codex/internal/router"
	datasyncsvc "github.com/KirkDiggler/rpg-codex/internal/services/datasync"
	"github.com/KirkDiggler/rpg-codex/internal/store"
)

// Config holds the settings and optional overrides for building the app
type Config struct {
	Settings *config.Config
	// Logger receives store dispatch logs (optional)
	Logger *slog.Logger
	// HTTPClient is shared by the data source and wiki clients (optional)
	HTTPClient *http.Client
	// Clock (optional, defaults to real time)
	Clock clock.Clock
	// Storage overrides the backend selected by Settings (optional)
	Storage storage.Repository
}

// Validate ensures all required dependencies are provided and sets defaults
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if c.Settings == nil {
		c.Settings = config.Default()
	}
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return nil
}

// App is the assembled application
type App struct {
	Settings *config.Config
	Storage  storage.Repository
	Fallback *fallback.Set
	Gateway  gateway.Service
	Store    store.Store
	Router   router.Router
	Sync     datasyncsvc.Service

	clock clock.Clock

	mu           sync.RWMutex
	bootstrapErr error
	cancel       context.CancelFunc
	done         chan struct{}
}

// New builds every component and registers the routes. Nothing is fetched
// until Bootstrap runs.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	settings := cfg.Settings

	repo := cfg.Storage
	if repo == nil {
		var err error
		repo, err = newStorage(settings, cfg.Clock)
		if err != nil {
			return nil, err
		}
	}

	fallbackSet, err := fallback.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load bundled data")
	}

	source, err := datasource.New(&datasource.Config{
		BaseURL:    settings.Data.SourceURL,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create data source client")
	}

	gatewayCfg := &gateway.Config{
		Source:         source,
		Fallback:       fallbackSet,
		Clock:          cfg.Clock,
		TTL:            settings.Data.CacheTTL,
		MaxAttempts:    settings.Data.MaxAttempts,
		RequestTimeout: settings.Data.RequestTimeout,
		BaseDelay:      settings.Data.RetryDelay,
	}
	if settings.Data.WikiEnabled {
		wikiClient, err := wiki.New(&wiki.Config{
			BaseURL:    settings.Data.WikiURL,
			HTTPClient: cfg.HTTPClient,
			Storage:    repo,
			Clock:      cfg.Clock,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create wiki client")
		}
		gatewayCfg.Secondary = wikiClient
	}
	gw, err := gateway.New(gatewayCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gateway")
	}

	st, err := store.New(&store.Config{Clock: cfg.Clock})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create store")
	}
	st.Use(store.LoggingMiddleware(cfg.Logger))

	rt, err := router.New(&router.Config{
		Store:    st,
		Gateway:  gw,
		Clock:    cfg.Clock,
		SiteName: settings.Server.SiteName,
		BaseURL:  settings.Server.BaseURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create router")
	}

	syncer, err := datasync.New(&datasync.Config{
		Gateway:       gw,
		Store:         st,
		Storage:       repo,
		Clock:         cfg.Clock,
		CheckInterval: settings.Sync.CheckInterval,
		StaleAfter:    settings.Sync.StaleAfter,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create data sync")
	}

	a := &App{
		Settings: settings,
		Storage:  repo,
		Fallback: fallbackSet,
		Gateway:  gw,
		Store:    st,
		Router:   rt,
		Sync:     syncer,
		clock:    cfg.Clock,
	}

	for _, route := range a.Routes() {
		if err := rt.Register(route); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func newStorage(settings *config.Config, c clock.Clock) (storage.Repository, error) {
	switch settings.Storage.Driver {
	case config.StorageRedis:
		client, err := redis.NewClient(settings.Storage.RedisAddr, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create redis client")
		}
		return storage.NewRedis(&storage.RedisConfig{Client: client})
	default:
		return storage.NewInMemory(c), nil
	}
}

// BootstrapError returns the error that stopped Bootstrap, if any
func (a *App) BootstrapError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bootstrapErr
}

// Close stops background work and detaches the router
func (a *App) Close() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	a.Router.Close()
}
