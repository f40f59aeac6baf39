// Package bootstrap turns a loaded configuration into the running profile
// services. The HTTP service and quotectl share it so both see the same data.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/daily-quote/internal/adapters/clients"
	"github.com/jsamuelsen/daily-quote/internal/adapters/clients/acl"
	"github.com/jsamuelsen/daily-quote/internal/adapters/events"
	"github.com/jsamuelsen/daily-quote/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/corpus"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/platform/telemetry"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// Options adjust wiring for tests and the CLI.
type Options struct {
	// Registerer receives the domain metrics. Nil disables them.
	Registerer prometheus.Registerer

	// Clock overrides the system clock.
	Clock ports.Clock

	// Backend replaces the backend named by storage.driver.
	Backend ports.StorageBackend
}

// App holds the wired profile services.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Bus     *events.Bus
	Corpus  *corpus.Manager
	Health  *ports.DefaultHealthRegistry
	Profile *app.Profile

	Quotes      *app.QuoteService
	Engagement  *app.EngagementService
	Collections *app.CollectionService
	Stats       *app.StatsService

	backend ports.StorageBackend
	cache   *storage.CachedStore
	store   *keyspace.Store
}

// New wires the storage backend, event bus, corpus and services, then loads the corpus.
// A corpus that cannot be loaded is not fatal: the daily quote falls back to the
// built-in quote until a reload succeeds.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	loc, err := cfg.Selector.Location()
	if err != nil {
		return nil, err
	}

	// 1. Storage backend
	backend := opts.Backend
	if backend == nil {
		if backend, err = storage.Open(cfg.Storage, logger); err != nil {
			return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Driver, err)
		}
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Health:  ports.NewHealthRegistry(),
		backend: backend,
	}

	// 2. Metrics
	var metrics ports.Metrics = ports.NopMetrics{}
	if opts.Registerer != nil {
		metrics = telemetry.NewDomainMetrics(opts.Registerer)
	}

	// 3. Read-through cache and typed keyspace announcing writes on the bus
	var kv ports.Storage = backend
	if cfg.Cache.Enabled {
		a.cache = storage.NewCachedStore(backend, cfg.Cache.Size, cfg.Cache.TTL, storage.WithLookupHook(metrics.CacheLookup))
		kv = a.cache
	}

	a.Bus = events.NewBus(cfg.Events.BufferSize, logger)
	a.store = keyspace.NewStore(kv, keyspace.WithPublisher(a.Bus))

	// 4. Corpus sources
	sources, checkers, err := corpusSources(cfg, logger)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}

	a.Corpus = corpus.NewManager(sources, corpus.WithReloadHook(metrics.CorpusReloaded))

	// 5. Health checks
	for _, c := range append([]ports.HealthChecker{backend, a.Corpus}, checkers...) {
		if err := a.Health.Register(c); err != nil {
			return nil, errors.Join(fmt.Errorf("registering %s health check: %w", c.Name(), err), a.Close())
		}
	}

	// 6. Profile services
	a.Profile = app.NewProfile(app.ProfileConfig{
		Store:     a.store,
		Publisher: a.Bus,
		Metrics:   metrics,
		Clock:     opts.Clock,
		Location:  loc,
		Logger:    logger,
	})

	policy := domain.StreakPolicy{GraceDays: cfg.Streak.GraceDays}

	a.Quotes = app.NewQuoteService(app.QuoteServiceConfig{Profile: a.Profile, Corpus: a.Corpus})
	a.Engagement = app.NewEngagementService(app.EngagementServiceConfig{
		Profile:      a.Profile,
		Policy:       policy,
		HistoryLimit: cfg.History.Limit,
	})
	a.Collections = app.NewCollectionService(app.CollectionServiceConfig{
		Profile: a.Profile,
		Quotes:  a.Quotes,
		Policy:  policy,
	})
	a.Stats = app.NewStatsService(a.Profile)

	// 7. Initial corpus load
	if n, err := a.Corpus.Reload(ctx); err != nil {
		logger.WarnContext(ctx, "corpus not loaded, serving the built-in quote", slog.String("error", err.Error()))
	} else {
		logger.InfoContext(ctx, "corpus loaded", slog.Int("quotes", n), slog.Int("sources", len(sources)))
	}

	return a, nil
}

// corpusSources builds the configured sources. Remote sources are also health checkers.
func corpusSources(cfg *config.Config, logger *slog.Logger) ([]ports.CorpusSource, []ports.HealthChecker, error) {
	var (
		sources  []ports.CorpusSource
		checkers []ports.HealthChecker
	)

	if cfg.Corpus.Embedded {
		sources = append(sources, corpus.EmbeddedSource{})
	}

	if cfg.Corpus.File != "" {
		sources = append(sources, corpus.FileSource{Path: cfg.Corpus.File})
	}

	if remote := cfg.Corpus.Remote; remote.Enabled {
		client, err := clients.New(clients.Config{
			BaseURL:     remote.BaseURL,
			ServiceName: remote.Name,
			UserAgent:   cfg.App.Name + "/" + cfg.App.Version,
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating %s client: %w", remote.Name, err)
		}

		source := acl.NewCorpusClient(acl.CorpusClientConfig{
			Client:   client,
			Name:     remote.Name,
			PageSize: remote.PageSize,
			MaxPages: remote.MaxPages,
		})
		sources = append(sources, source)
		checkers = append(checkers, source)
	}

	if len(sources) == 0 {
		return nil, nil, domain.NewValidationError("corpus", "at least one source must be enabled")
	}

	return sources, checkers, nil
}

// Refresher returns the date-boundary service configured by refresher.*.
func (a *App) Refresher() (*app.Refresher, error) {
	return app.NewRefresher(app.RefresherConfig{
		Quotes:       a.Quotes,
		Engagement:   a.Engagement,
		Interval:     a.Config.Refresher.Interval,
		ReminderTime: a.Config.Refresher.ReminderTime,
	})
}

// CacheInvalidator returns the service dropping cached keys written by other
// stores on the bus, or nil when the cache is disabled.
func (a *App) CacheInvalidator() *events.CacheInvalidator {
	if a.cache == nil {
		return nil
	}

	return events.NewCacheInvalidator(a.Bus, a.cache, a.store.Origin(), keyspace.StorageNames)
}

// ChangeRelay returns the service sharing key changes with other processes on the
// same backend, or nil when the cache is disabled or the backend cannot broadcast.
// Without it, the cache TTL bounds how stale another process's writes can look.
func (a *App) ChangeRelay() *events.ChangeRelay {
	feed, ok := a.backend.(events.ChangeFeed)
	if a.cache == nil || !ok {
		return nil
	}

	return events.NewChangeRelay(a.Bus, feed, a.store.Origin())
}

// Close stops the bus and closes the storage backend.
func (a *App) Close() error {
	var errs []error

	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}

	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	} else {
		errs = append(errs, a.backend.Close())
	}

	return errors.Join(errs...)
}
