package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/adapters/events"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote/internal/app"
	"github.com/jsamuelsen/daily-quote/internal/app/keyspace"
	"github.com/jsamuelsen/daily-quote/internal/corpus"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// do serves one request against engine. A non-empty body is sent as JSON.
func do(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// setDay moves the clock to 09:00 UTC on day.
func (c *settableClock) setDay(t *testing.T, day string) {
	t.Helper()

	d, err := time.Parse(domain.DateLayout, day)
	require.NoError(t, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = d.Add(9 * time.Hour)
}

// failingCorpus answers every reload with err and keeps list.
type failingCorpus struct {
	list domain.QuoteList
	err  error
}

func (f failingCorpus) Snapshot() domain.QuoteList           { return f.list }
func (f failingCorpus) Reload(context.Context) (int, error) { return 0, f.err }

// fixture serves the quote API over the embedded corpus and an in-memory profile.
type fixture struct {
	clock       *settableClock
	bus         *events.Bus
	quotes      *app.QuoteService
	engagement  *app.EngagementService
	collections *app.CollectionService
	engine      *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	manager := corpus.NewManager([]ports.CorpusSource{corpus.EmbeddedSource{}})
	_, err := manager.Reload(context.Background())
	require.NoError(t, err)

	return newFixtureWithCorpus(t, manager)
}

func newFixtureWithCorpus(t *testing.T, c ports.QuoteCorpus) *fixture {
	t.Helper()

	f := &fixture{
		clock: &settableClock{},
		bus:   events.NewBus(16, discardLogger()),
	}
	f.clock.setDay(t, "2026-10-19")
	t.Cleanup(func() { _ = f.bus.Close() })

	store := keyspace.NewStore(storage.NewMemoryStore(), keyspace.WithPublisher(f.bus))
	profile := app.NewProfile(app.ProfileConfig{
		Store:     store,
		Publisher: f.bus,
		Clock:     f.clock,
		Location:  time.UTC,
		Logger:    discardLogger(),
	})

	f.quotes = app.NewQuoteService(app.QuoteServiceConfig{Profile: profile, Corpus: c})
	f.engagement = app.NewEngagementService(app.EngagementServiceConfig{
		Profile: profile,
		Policy:  domain.DefaultStreakPolicy(),
	})
	f.collections = app.NewCollectionService(app.CollectionServiceConfig{
		Profile: profile,
		Quotes:  f.quotes,
		Policy:  domain.DefaultStreakPolicy(),
	})

	f.engine = gin.New()
	api := f.engine.Group("/api/v1")
	NewQuoteHandler(f.quotes, f.engagement).RegisterRoutes(api, nil)
	NewEngagementHandler(f.engagement, app.NewStatsService(profile)).RegisterRoutes(api)
	NewCollectionHandler(f.collections).RegisterRoutes(api)
	NewEventHandler(f.bus, 0).RegisterRoutes(api)

	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	return do(f.engine, method, path, body)
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) dto.ErrorResponse {
	t.Helper()

	require.Equal(t, status, w.Code, w.Body.String())

	body := decode[dto.ErrorResponse](t, w)
	require.Equal(t, code, body.Error.Code)

	return body
}
