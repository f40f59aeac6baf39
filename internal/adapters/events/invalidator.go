package events

import (
	"context"
	"log/slog"

	"github.com/thejerf/suture/v4"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// Invalidator is satisfied by caches that can drop a single key.
type Invalidator interface {
	Invalidate(key string)
}

// CacheInvalidator drops cached keys written by other store instances.
// It runs as a supervised service.
type CacheInvalidator struct {
	bus    *Bus
	cache  Invalidator
	origin string
	names  func(key string) []string
}

// NewCacheInvalidator creates an invalidator ignoring changes stamped with origin.
// names expands a primary key into every storage name it is written under.
func NewCacheInvalidator(bus *Bus, cache Invalidator, origin string, names func(string) []string) *CacheInvalidator {
	if names == nil {
		names = func(k string) []string { return []string{k} }
	}

	return &CacheInvalidator{bus: bus, cache: cache, origin: origin, names: names}
}

// Serve consumes key change events until ctx is done or the bus closes.
func (c *CacheInvalidator) Serve(ctx context.Context) error {
	sub, err := c.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx)

	for env := range sub {
		if env.Type != domain.EventKeyChanged {
			continue
		}

		change, err := Decode[domain.KeyChanged](env)
		if err != nil {
			logger.WarnContext(ctx, "skipping malformed key change", slog.String("error", err.Error()))
			continue
		}

		if change.Origin == c.origin {
			continue
		}

		for _, name := range c.names(change.Key) {
			c.cache.Invalidate(name)
		}

		logging.Trace(ctx, logger, "invalidated cached key",
			slog.String("key", change.Key), slog.String("origin", change.Origin))
	}

	if ctx.Err() == nil {
		return suture.ErrDoNotRestart
	}

	return ctx.Err()
}

// String names the service in supervisor logs.
func (c *CacheInvalidator) String() string { return "cache-invalidator" }
