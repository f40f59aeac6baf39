// Package main is the entry point for the daily quote HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jsamuelsen/daily-quote/internal/adapters/http"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/handlers"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/middleware"
	"github.com/jsamuelsen/daily-quote/internal/bootstrap"
	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote/internal/platform/supervisor"
	"github.com/jsamuelsen/daily-quote/internal/platform/telemetry"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			Level:      cfg.Log.File.Level,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.InfoContext(ctx, "starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
		Attributes: map[string]string{
			"storage.driver": cfg.Storage.Driver,
			"timezone":       cfg.Selector.Timezone,
		},
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Storage, corpus and profile services
	application, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return fmt.Errorf("wiring services: %w", err)
	}

	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			logger.Error("closing storage", slog.Any("error", closeErr))
		}
	}()

	// 6. HTTP server and routes
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.RouterConfig{
		Logger:      logger,
		ServiceName: cfg.App.Name,
		Health:      handlers.NewHealthHandler(application.Health, handlers.NewBuildInfo(Version, Commit, BuildTime)),
		Quotes:      handlers.NewQuoteHandler(application.Quotes, application.Engagement),
		Engagement:  handlers.NewEngagementHandler(application.Engagement, application.Stats),
		Collections: handlers.NewCollectionHandler(application.Collections),
		Events:      handlers.NewEventHandler(application.Bus, 0),
		Limiter:     limiter,
		Timeout:     cfg.Server.RequestTimeout,
	})

	// 7. Supervision tree
	tree := supervisor.New(cfg.App.Name, logger, supervisor.Config{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPI(server)

	if cfg.Refresher.Enabled {
		refresher, err := application.Refresher()
		if err != nil {
			return fmt.Errorf("creating refresher: %w", err)
		}

		tree.AddBackground(refresher)
	}

	if invalidator := application.CacheInvalidator(); invalidator != nil {
		tree.AddBackground(invalidator)
	}

	if relay := application.ChangeRelay(); relay != nil {
		tree.AddBackground(relay)
	}

	// 8. Run until a signal arrives
	err = tree.Serve(ctx)

	logger.Info("shutdown complete")

	if unstopped, reportErr := tree.Unstopped(); reportErr == nil && len(unstopped) > 0 {
		logger.Warn("services did not stop in time", slog.Int("count", len(unstopped)))
	}

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	return nil
}
