// Package supervisor runs the long-lived parts of the service under a suture tree.
//
//	daily-quote
//	├── background: date refresher, cache invalidator
//	└── api: HTTP server
//
// A crashing background service is restarted with backoff without touching the API.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config tunes restart behaviour.
type Config struct {
	// FailureThreshold is the number of failures before entering backoff.
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay, in seconds.
	FailureDecay float64

	// FailureBackoff is how long a failing supervisor waits before restarting children.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service gets to stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig matches suture's own defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}

	if c.FailureDecay == 0 {
		c.FailureDecay = def.FailureDecay
	}

	if c.FailureBackoff == 0 {
		c.FailureBackoff = def.FailureBackoff
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}

	return c
}

// Tree is the root supervisor with its background and api layers.
type Tree struct {
	root       *suture.Supervisor
	background *suture.Supervisor
	api        *suture.Supervisor
	config     Config
}

// New builds the tree. Supervisor events are logged through logger.
func New(name string, logger *slog.Logger, cfg Config) *Tree {
	cfg = cfg.withDefaults()

	hook := (&sutureslog.Handler{Logger: logger.With(slog.String("component", "supervisor"))}).MustHook()

	spec := suture.Spec{
		EventHook:        hook,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	t := &Tree{
		root:       suture.New(name, spec),
		background: suture.New("background", spec),
		api:        suture.New("api", spec),
		config:     cfg,
	}

	t.root.Add(t.background)
	t.root.Add(t.api)

	return t
}

// AddBackground supervises a service that has no listener of its own.
func (t *Tree) AddBackground(svc suture.Service) suture.ServiceToken {
	return t.background.Add(svc)
}

// AddAPI supervises a service that answers requests.
func (t *Tree) AddAPI(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is done.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel yields its result.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// Unstopped reports services that missed the shutdown timeout.
func (t *Tree) Unstopped() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
