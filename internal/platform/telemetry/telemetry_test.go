package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

var _ ports.Metrics = (*DomainMetrics)(nil)

func TestDomainMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.QuoteServed("selector")
	m.QuoteServed("selector")
	m.QuoteServed("fallback")
	m.ActivityRecorded(domain.ActivitySave)
	m.CollectionChanged(domain.CollectionLiked, true)
	m.CollectionChanged(domain.CollectionLiked, false)
	m.StorageError("streakData")
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.quotesServed.WithLabelValues("selector")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.quotesServed.WithLabelValues("fallback")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.activities.WithLabelValues("save")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.collectionOps.WithLabelValues("liked", "true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.collectionOps.WithLabelValues("liked", "false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.storageErrors.WithLabelValues("streakData")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")), 0)
}

func TestDomainMetrics_CorpusReloaded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.CorpusReloaded(30, 20*time.Millisecond)
	m.CorpusReloaded(42, 10*time.Millisecond)

	assert.InDelta(t, 42, testutil.ToFloat64(m.corpusSize), 0)

	count, err := testutil.GatherAndCount(reg, "daily_quote_corpus_reload_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDomainMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)
	m.QuoteServed("cache")

	expected := `
# HELP daily_quote_quotes_served_total Daily and random quotes served, by origin (cache, selector, fallback, random).
# TYPE daily_quote_quotes_served_total counter
daily_quote_quotes_served_total{origin="cache"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "daily_quote_quotes_served_total"))
}

func TestNewDomainMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewDomainMetrics(reg)

	assert.Panics(t, func() { NewDomainMetrics(reg) })
}

func TestHTTPMiddleware_PassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		path string
	}{
		{"measured route", "/api/v1/streak"},
		{"skipped probe", "/-/live"},
		{"unmatched", "/nope"},
	}

	router := gin.New()
	router.Use(Tracing("daily-quote", "/-/"), RequestMetrics("/-/"))
	router.GET("/api/v1/streak", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, tt.path, http.NoBody)

			router.ServeHTTP(w, req)

			assert.NotEqual(t, http.StatusInternalServerError, w.Code)
		})
	}
}

func TestRequestMetrics_EchoesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	previous := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	router := gin.New()
	router.Use(Tracing("daily-quote", "/-/"), RequestMetrics("/-/"))
	router.GET("/api/v1/quotes/today", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/-/ready", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/api/v1/quotes/today", http.NoBody))
	assert.Len(t, w.Header().Get(HeaderTraceID), 32)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/-/ready", http.NoBody))
	assert.Empty(t, w.Header().Get(HeaderTraceID))
}

func TestSkipped(t *testing.T) {
	assert.True(t, skipped("/-/metrics", []string{"/-/"}))
	assert.False(t, skipped("/api/v1/stats", []string{"/-/"}))
	assert.False(t, skipped("/-/live", nil))
}

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})

	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewResource_DeploymentAttributes(t *testing.T) {
	res, err := newResource(&Config{
		ServiceName: "daily-quote",
		Version:     "1.0.0",
		Environment: "prod",
		Attributes:  map[string]string{"storage.driver": "redis", "timezone": "Europe/Paris"},
	})
	require.NoError(t, err)

	driver, ok := res.Set().Value(attribute.Key("daily_quote.storage.driver"))
	require.True(t, ok)
	assert.Equal(t, "redis", driver.AsString())

	tz, ok := res.Set().Value(attribute.Key("daily_quote.timezone"))
	require.True(t, ok)
	assert.Equal(t, "Europe/Paris", tz.AsString())

	name, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "daily-quote", name.AsString())
}
