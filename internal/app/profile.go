package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// ProfileConfig holds the dependencies shared by every profile service.
type ProfileConfig struct {
	Store     *keyspace.Store
	Publisher ports.EventPublisher
	Metrics   ports.Metrics
	Clock     ports.Clock
	Location  *time.Location
	Logger    *slog.Logger
}

// Profile is the single local profile: its store, calendar and update lock.
// Services built on the same Profile never interleave their read-modify-write cycles.
type Profile struct {
	store     *keyspace.Store
	publisher ports.EventPublisher
	metrics   ports.Metrics
	clock     ports.Clock
	loc       *time.Location
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewProfile creates a profile. Store is required; everything else has a default.
func NewProfile(cfg ProfileConfig) *Profile {
	if cfg.Store == nil {
		panic("app: Store is required")
	}

	p := &Profile{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		loc:       cfg.Location,
		logger:    cfg.Logger,
	}

	if p.publisher == nil {
		p.publisher = ports.NopPublisher{}
	}

	if p.metrics == nil {
		p.metrics = ports.NopMetrics{}
	}

	if p.clock == nil {
		p.clock = ports.SystemClock{}
	}

	if p.loc == nil {
		p.loc = time.Local
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// Now returns the current time in the profile's time zone.
func (p *Profile) Now() time.Time {
	return p.clock.Now().In(p.loc)
}

// Today returns the profile's local calendar date.
func (p *Profile) Today() domain.DateKey {
	return domain.NewDateKey(p.Now())
}

// StartOf returns local midnight of day.
func (p *Profile) StartOf(day domain.DateKey) time.Time {
	t := day.Time()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

// Store returns the typed store.
func (p *Profile) Store() *keyspace.Store { return p.store }

// Location returns the profile's time zone.
func (p *Profile) Location() *time.Location { return p.loc }

func (p *Profile) lock() func() {
	p.mu.Lock()
	return p.mu.Unlock
}

func (p *Profile) logFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, p.logger)
}

func (p *Profile) publish(ctx context.Context, event ports.Event) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logFor(ctx).WarnContext(ctx, "failed to publish event",
			slog.String("event_type", event.EventType()),
			slog.String("error", err.Error()))
	}
}

// storageFailed logs a storage failure and counts it by key.
func (p *Profile) storageFailed(ctx context.Context, msg string, err error) {
	key := "unknown"

	var se *domain.StorageError
	if errors.As(err, &se) {
		key = se.Key
	}

	var schema *keyspace.SchemaError
	if errors.As(err, &schema) {
		key = schema.Key
	}

	p.metrics.StorageError(key)
	p.logFor(ctx).ErrorContext(ctx, msg, slog.String("key", key), slog.String("error", err.Error()))
}

// load reads k, treating a missing, unreadable or malformed value as def.
// Failures are logged and counted.
func load[T any](ctx context.Context, p *Profile, k keyspace.Key[T], def T) T {
	v, ok, err := keyspace.Get(ctx, p.store, k)
	if err != nil {
		p.storageFailed(ctx, "discarding stored value", err)
		return def
	}

	if !ok {
		return def
	}

	return v
}
