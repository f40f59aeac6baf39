package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/adapters/events"
	"github.com/jsamuelsen/daily-quote/internal/adapters/http/dto"
	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// openStream connects to the event stream and waits for the connected comment.
func openStream(t *testing.T, ctx context.Context, srv *httptest.Server) *bufio.Scanner {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	waitForLine(t, lines, ": connected")

	return lines
}

// waitForLine reads until a line with prefix arrives and returns the lines read before it.
func waitForLine(t *testing.T, lines *bufio.Scanner, prefix string) []string {
	t.Helper()

	var seen []string

	for lines.Scan() {
		line := lines.Text()
		if strings.HasPrefix(line, prefix) {
			return seen
		}

		seen = append(seen, line)
	}

	require.FailNow(t, "stream ended before "+prefix, "err: %v, seen: %v", lines.Err(), seen)

	return nil
}

func TestEventHandler_Stream(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(f.engine)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	lines := openStream(t, ctx, srv)

	resp, err := srv.Client().Post(srv.URL+"/api/v1/collections/liked", "application/json",
		strings.NewReader(`{"quoteId":"q001"}`))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	skipped := waitForLine(t, lines, "event:"+domain.EventCollectionChanged)
	for _, line := range skipped {
		assert.NotContains(t, line, domain.EventKeyChanged, "storage key changes stay internal")
	}

	require.True(t, lines.Scan())
	assert.True(t, strings.HasPrefix(lines.Text(), "data:"))
	assert.Contains(t, lines.Text(), `"q001"`)
}

func TestEventHandler_Heartbeat(t *testing.T) {
	bus := events.NewBus(4, discardLogger())
	t.Cleanup(func() { _ = bus.Close() })

	engine := gin.New()
	NewEventHandler(bus, 20*time.Millisecond).RegisterRoutes(engine.Group("/api/v1"))

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	lines := openStream(t, ctx, srv)
	waitForLine(t, lines, ": heartbeat")
}

func TestEventHandler_BusClosed(t *testing.T) {
	bus := events.NewBus(4, discardLogger())
	require.NoError(t, bus.Close())

	engine := gin.New()
	NewEventHandler(bus, 0).RegisterRoutes(engine.Group("/api/v1"))

	assertErrorCode(t, do(engine, http.MethodGet, "/api/v1/events", ""),
		http.StatusServiceUnavailable, dto.ErrorCodeUnavailable)
}

func TestNewEventHandler_DefaultHeartbeat(t *testing.T) {
	bus := events.NewBus(1, discardLogger())
	t.Cleanup(func() { _ = bus.Close() })

	assert.Equal(t, DefaultHeartbeat, NewEventHandler(bus, -time.Second).heartbeat)
}
