package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(day string) *fakeClock {
	c := &fakeClock{}
	c.SetDay(day)

	return c
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// SetDay moves the clock to noon UTC on day.
func (c *fakeClock) SetDay(day string) {
	t, err := time.Parse(domain.DateLayout, day)
	if err != nil {
		panic(err)
	}

	c.Set(t.Add(12 * time.Hour))
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// spyCorpus counts snapshot reads.
type spyCorpus struct {
	mu        sync.Mutex
	list      domain.QuoteList
	snapshots int
	reloadErr error
}

func (c *spyCorpus) Snapshot() domain.QuoteList {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshots++

	return c.list
}

func (c *spyCorpus) Reload(context.Context) (int, error) {
	if c.reloadErr != nil {
		return 0, c.reloadErr
	}

	return len(c.list), nil
}

func (c *spyCorpus) reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshots
}

// numberedCorpus returns n quotes with ids q0..q(n-1).
func numberedCorpus(n int) domain.QuoteList {
	out := make(domain.QuoteList, n)
	for i := range out {
		out[i] = domain.Quote{
			ID:       fmt.Sprintf("q%d", i),
			Text:     fmt.Sprintf("Quote number %d", i),
			Author:   fmt.Sprintf("Author %d", i%3),
			Category: []string{"wisdom", "action"}[i%2],
		}
	}

	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, e)

	return nil
}

// ofType returns the published events of type t.
func (p *recordingPublisher) ofType(t string) []ports.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []ports.Event

	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}

	return out
}

// flakyStorage fails writes to the listed keys.
type flakyStorage struct {
	*storage.MemoryStore
	mu       sync.Mutex
	failSets map[string]bool
}

func newFlakyStorage() *flakyStorage {
	return &flakyStorage{MemoryStore: storage.NewMemoryStore(), failSets: map[string]bool{}}
}

func (f *flakyStorage) failWrites(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, k := range keys {
		f.failSets[k] = true
	}
}

func (f *flakyStorage) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSets[key]
	f.mu.Unlock()

	if fail {
		return errors.New("disk full")
	}

	return f.MemoryStore.Set(ctx, key, value)
}

// countingMetrics records domain counters.
type countingMetrics struct {
	ports.NopMetrics

	mu       sync.Mutex
	served   map[string]int
	activity map[domain.ActivityKind]int
	storage  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		served:   map[string]int{},
		activity: map[domain.ActivityKind]int{},
		storage:  map[string]int{},
	}
}

func (m *countingMetrics) QuoteServed(origin string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.served[origin]++
}

func (m *countingMetrics) ActivityRecorded(kind domain.ActivityKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[kind]++
}

func (m *countingMetrics) StorageError(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storage[key]++
}

// fixture wires every service over one in-memory profile.
type fixture struct {
	clock      *fakeClock
	backend    *flakyStorage
	store      *keyspace.Store
	corpus     *spyCorpus
	publisher  *recordingPublisher
	metrics    *countingMetrics
	profile    *Profile
	quotes     *QuoteService
	engagement *EngagementService
	collection *CollectionService
	stats      *StatsService
}

func newFixture(t *testing.T, day string, corpus domain.QuoteList) *fixture {
	t.Helper()

	f := &fixture{
		clock:     newFakeClock(day),
		backend:   newFlakyStorage(),
		corpus:    &spyCorpus{list: corpus},
		publisher: &recordingPublisher{},
		metrics:   newCountingMetrics(),
	}

	f.store = keyspace.NewStore(f.backend)
	f.profile = NewProfile(ProfileConfig{
		Store:     f.store,
		Publisher: f.publisher,
		Metrics:   f.metrics,
		Clock:     f.clock,
		Location:  time.UTC,
		Logger:    discardLogger(),
	})
	f.quotes = NewQuoteService(QuoteServiceConfig{Profile: f.profile, Corpus: f.corpus})
	f.engagement = NewEngagementService(EngagementServiceConfig{
		Profile: f.profile,
		Policy:  domain.DefaultStreakPolicy(),
	})
	f.collection = NewCollectionService(CollectionServiceConfig{
		Profile: f.profile,
		Quotes:  f.quotes,
		Policy:  domain.DefaultStreakPolicy(),
	})
	f.stats = NewStatsService(f.profile)

	return f
}

// streak reads the stored record directly.
func (f *fixture) streak(t *testing.T) domain.StreakRecord {
	t.Helper()

	rec, _, err := keyspace.Get(context.Background(), f.store, keyspace.Streak)
	require.NoError(t, err)

	return rec
}
