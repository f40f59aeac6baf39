// Package ports defines the interfaces between the application core and its adapters.
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// Storage is the key-value persistence port. Values are opaque JSON documents.
//
// Get returns an error wrapping domain.ErrNotFound when the key is absent.
// Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StorageBackend is a Storage owned by the process: it reports health and must be closed.
type StorageBackend interface {
	Storage
	HealthChecker

	Close() error
}

// CorpusSource loads quotes from one origin (embedded data, a file, a remote API).
type CorpusSource interface {
	Name() string
	LoadQuotes(ctx context.Context) ([]domain.Quote, error)
}

// QuoteCorpus is the merged, reloadable set of quotes the selector picks from.
type QuoteCorpus interface {
	// Snapshot returns the current immutable list.
	Snapshot() domain.QuoteList

	// Reload re-reads every source and returns the new corpus size.
	Reload(ctx context.Context) (int, error)
}

// EventPublisher defines the interface for publishing domain events.
type EventPublisher interface {
	// Publish sends an event. Delivery is best effort and asynchronous.
	Publish(ctx context.Context, event Event) error
}

// Event represents a domain event.
type Event interface {
	// EventType returns the event type identifier (e.g., "streak.updated").
	EventType() string

	// Payload returns the event data.
	Payload() any
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Metrics records domain counters.
type Metrics interface {
	// QuoteServed counts a quote handed to the UI by origin: cache, selector, fallback or random.
	QuoteServed(origin string)
	ActivityRecorded(kind domain.ActivityKind)
	CollectionChanged(name domain.CollectionName, added bool)
	StorageError(key string)
	CacheLookup(hit bool)
	CorpusReloaded(size int, took time.Duration)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) QuoteServed(string) {}
func (NopMetrics) ActivityRecorded(domain.ActivityKind) {}
func (NopMetrics) CollectionChanged(domain.CollectionName, bool) {}
func (NopMetrics) StorageError(string) {}
func (NopMetrics) CacheLookup(bool) {}
func (NopMetrics) CorpusReloaded(int, time.Duration) {}
