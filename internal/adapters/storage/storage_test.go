package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/config"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backends returns one fresh instance of every driver.
func backends(t *testing.T) map[string]ports.StorageBackend {
	t.Helper()

	file, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	bdg, err := NewBadgerStore(t.TempDir(), "dq:", discardLogger())
	require.NoError(t, err)

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), SQLiteFileName))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "dq:")

	all := map[string]ports.StorageBackend{
		"memory": NewMemoryStore(),
		"file":   file,
		"badger": bdg,
		"sqlite": sqlite,
		"redis":  rds,
		"cached": NewCachedStore(NewMemoryStore(), 8, time.Minute),
	}

	t.Cleanup(func() {
		for _, b := range all {
			_ = b.Close()
		}
	})

	return all
}

func TestBackends_Contract(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "savedQuotes")
			require.Error(t, err)
			assert.True(t, domain.IsNotFound(err), "missing key must be NotFound, got %v", err)

			require.NoError(t, b.Set(ctx, "savedQuotes", []byte(`[{"id":"q1"}]`)))

			got, err := b.Get(ctx, "savedQuotes")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"q1"}]`, string(got))

			require.NoError(t, b.Set(ctx, "savedQuotes", []byte(`[]`)))
			got, err = b.Get(ctx, "savedQuotes")
			require.NoError(t, err)
			assert.Equal(t, "[]", string(got))

			require.NoError(t, b.Delete(ctx, "savedQuotes"))
			require.NoError(t, b.Delete(ctx, "savedQuotes"), "deleting twice is not an error")

			_, err = b.Get(ctx, "savedQuotes")
			assert.True(t, domain.IsNotFound(err))

			assert.NotEmpty(t, b.Name())
			assert.NoError(t, b.Check(ctx))
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestFileStore_RejectsUnsafeKeys(t *testing.T) {
	f, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../escape", "a/b", "", "with space"} {
		t.Run(key, func(t *testing.T) {
			err := f.Set(context.Background(), key, []byte("{}"))
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))
		})
	}
}

func TestFileStore_WritesOneFilePerKey(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, f.Set(context.Background(), "gentleStreakData", []byte(`{"currentStreak":2}`)))

	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "gentleStreakData.json")}, matches)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b, err := NewBadgerStore(dir, "", discardLogger())
	require.NoError(t, err)
	require.NoError(t, b.Set(ctx, "dailyQuoteDate", []byte(`"2024-01-01"`)))
	require.NoError(t, b.Close())

	b, err = NewBadgerStore(dir, "", discardLogger())
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	got, err := b.Get(ctx, "dailyQuoteDate")
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-01"`, string(got))
}

func TestBadgerStore_CheckFailsWhenClosed(t *testing.T) {
	b, err := NewBadgerStore(t.TempDir(), "", discardLogger())
	require.NoError(t, err)
	require.NoError(t, b.Close())

	assert.Error(t, b.Check(context.Background()))
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "profile:")

	require.NoError(t, r.Set(context.Background(), "likedQuotes", []byte("[]")))

	raw, err := mr.Get("profile:likedQuotes")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestRedisStore_BroadcastsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	a := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "dq:")
	b := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "dq:")
	other := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "elsewhere:")

	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
		_ = other.Close()
	})

	changes, err := b.SubscribeChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, other.PublishChange(ctx, []byte(`{"key":"ignored"}`)))
	require.NoError(t, a.PublishChange(ctx, []byte(`{"key":"savedQuotes"}`)))

	select {
	case raw := <-changes:
		assert.JSONEq(t, `{"key":"savedQuotes"}`, string(raw), "channels are scoped by prefix")
	case <-time.After(2 * time.Second):
		t.Fatal("no change received")
	}

	cancel()

	select {
	case _, open := <-changes:
		assert.False(t, open, "stream closes with its context")
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open")
	}
}

func TestRedisStore_CheckFailsWhenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	mr.Close()

	assert.Error(t, r.Check(context.Background()))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore("not-a-url", "")
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", SQLiteFileName)
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "quoteHistory", []byte("[]")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(ctx, "quoteHistory")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		driver   string
		wantName string
	}{
		{"memory", "storage:memory"},
		{"file", "storage:file"},
		{"badger", "storage:badger"},
		{"sqlite", "storage:sqlite"},
		{"redis", "storage:redis"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := config.StorageConfig{
				Driver:   tt.driver,
				Path:     t.TempDir(),
				RedisURL: "redis://" + mr.Addr() + "/0",
			}

			b, err := Open(cfg, discardLogger())
			require.NoError(t, err)
			defer func() { _ = b.Close() }()

			assert.Equal(t, tt.wantName, b.Name())
		})
	}

	_, err := Open(config.StorageConfig{Driver: "postgres"}, discardLogger())
	assert.ErrorContains(t, err, "unknown storage driver")
}
