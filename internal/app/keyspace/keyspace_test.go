package keyspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/daily-quote/internal/adapters/storage"
	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

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

// brokenStorage fails every call.
type brokenStorage struct{}

func (brokenStorage) Get(context.Context, string) ([]byte, error) { return nil, errors.New("io error") }
func (brokenStorage) Set(context.Context, string, []byte) error   { return errors.New("io error") }
func (brokenStorage) Delete(context.Context, string) error        { return errors.New("io error") }

// failingNames wraps a backend and rejects writes to the listed names.
type failingNames struct {
	ports.Storage
	names map[string]bool
}

func (f failingNames) Set(ctx context.Context, name string, raw []byte) error {
	if f.names[name] {
		return errors.New("disk full")
	}

	return f.Storage.Set(ctx, name, raw)
}

var sampleQuote = domain.Quote{ID: "q1", Text: "Stay hungry.", Author: "Stewart Brand"}

func TestGet_MissingKey(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())

	rec, ok, err := Get(context.Background(), s, Streak)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.StreakRecord{}, rec)
}

func TestSetGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryStore())

	rec := domain.StreakRecord{CurrentStreak: 2, LongestStreak: 5, LastActiveDate: "2024-01-02", TotalDaysActive: 7}
	require.NoError(t, Set(ctx, s, Streak, rec))

	got, ok, err := Get(ctx, s, Streak)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestSet_WritesAliases(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := NewStore(backend)

	require.NoError(t, Set(ctx, s, DailyQuoteDate, domain.DateKey("2024-01-01")))

	for _, name := range []string{"dailyQuoteDate", "dayBasedQuoteDate"} {
		raw, err := backend.Get(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, `"2024-01-01"`, string(raw))
	}
}

func TestGet_FallsBackToLegacyAlias(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.Set(ctx, "dayBasedQuote", []byte(`{"id":"q1","text":"Stay hungry.","author":"Stewart Brand"}`)))

	got, ok, err := Get(ctx, NewStore(backend), DailyQuote)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sampleQuote, got)
}

func TestGet_SchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
		get  func(*Store) error
	}{
		{
			name: "not json",
			key:  "gentleStreakData",
			raw:  "{oops",
			get:  func(s *Store) error { _, _, err := Get(context.Background(), s, Streak); return err },
		},
		{
			name: "wrong shape",
			key:  "savedQuotes",
			raw:  `{"id":"q1"}`,
			get:  func(s *Store) error { _, _, err := Get(context.Background(), s, SavedQuotes); return err },
		},
		{
			name: "negative counter",
			key:  "gentleStreakData",
			raw:  `{"currentStreak":-3}`,
			get:  func(s *Store) error { _, _, err := Get(context.Background(), s, Streak); return err },
		},
		{
			name: "malformed date",
			key:  "dailyQuoteDate",
			raw:  `"01/02/2024"`,
			get:  func(s *Store) error { _, _, err := Get(context.Background(), s, DailyQuoteDate); return err },
		},
		{
			name: "saved quote without text",
			key:  "savedQuotes",
			raw:  `[{"id":"q1","createdAt":"2024-01-01T00:00:00Z"}]`,
			get:  func(s *Store) error { _, _, err := Get(context.Background(), s, SavedQuotes); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := storage.NewMemoryStore()
			require.NoError(t, backend.Set(context.Background(), tt.key, []byte(tt.raw)))

			err := tt.get(NewStore(backend))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchema)
			assert.True(t, domain.IsValidation(err))

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.key, se.Key)
		})
	}
}

func TestGet_BackendFailure(t *testing.T) {
	_, _, err := Get(context.Background(), NewStore(brokenStorage{}), Streak)

	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.StorageRead, se.Op)
}

func TestGetOr(t *testing.T) {
	ctx := context.Background()
	fallback := domain.Collection{}

	t.Run("missing", func(t *testing.T) {
		got := GetOr(ctx, NewStore(storage.NewMemoryStore()), SavedQuotes, fallback)
		assert.Empty(t, got)
	})

	t.Run("malformed", func(t *testing.T) {
		backend := storage.NewMemoryStore()
		require.NoError(t, backend.Set(ctx, "gentleStreakData", []byte("null-ish")))

		got := GetOr(ctx, NewStore(backend), Streak, domain.StreakRecord{})
		assert.Equal(t, domain.StreakRecord{}, got)
	})

	t.Run("unreadable", func(t *testing.T) {
		got := GetOr(ctx, NewStore(brokenStorage{}), Streak, domain.StreakRecord{CurrentStreak: 9})
		assert.Equal(t, 9, got.CurrentStreak)
	})
}

func TestSet_RejectsInvalidValue(t *testing.T) {
	backend := storage.NewMemoryStore()
	s := NewStore(backend)

	err := Set(context.Background(), s, DailyQuote, domain.Quote{ID: "blank"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = backend.Get(context.Background(), "dailyQuote")
	assert.True(t, domain.IsNotFound(err), "invalid value must not be written")
}

func TestSet_BackendFailure(t *testing.T) {
	err := Set(context.Background(), NewStore(brokenStorage{}), DailyQuote, sampleQuote)

	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.StorageWrite, se.Op)
}

func TestSetDelete_PublishKeyChanged(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := NewStore(storage.NewMemoryStore(), WithPublisher(pub), WithOrigin("service"))

	require.NoError(t, Set(ctx, s, LikedQuotes, domain.Collection{}))
	require.NoError(t, Delete(ctx, s, LikedQuotes))

	require.Len(t, pub.events, 2)
	assert.Equal(t, domain.KeyChanged{Key: "likedQuotes", Origin: "service"}, pub.events[0])
	assert.Equal(t, domain.KeyChanged{Key: "likedQuotes", Deleted: true, Origin: "service"}, pub.events[1])
}

func TestDelete_RemovesAliases(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := NewStore(backend)

	require.NoError(t, Set(ctx, s, DailyQuote, sampleQuote))
	require.NoError(t, Delete(ctx, s, DailyQuote))

	_, ok, err := Get(ctx, s, DailyQuote)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStage_ExecuteAndRollback(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := NewStore(backend)

	before := domain.Collection{{Quote: sampleQuote, CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}}
	require.NoError(t, Set(ctx, s, SavedQuotes, before))

	action := Stage(s, SavedQuotes, domain.Collection{})
	assert.Equal(t, "write savedQuotes", action.Description())

	require.NoError(t, action.Execute(ctx))
	got, _, err := Get(ctx, s, SavedQuotes)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, action.Rollback(ctx))
	got, _, err = Get(ctx, s, SavedQuotes)
	require.NoError(t, err)
	assert.Equal(t, before, got)
}

func TestStage_RollbackDeletesNewKeys(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryStore()
	s := NewStore(backend)

	action := Stage(s, DailyQuoteDate, domain.DateKey("2024-03-15"))
	require.NoError(t, action.Execute(ctx))
	require.NoError(t, action.Rollback(ctx))

	for _, name := range []string{"dailyQuoteDate", "dayBasedQuoteDate"} {
		_, err := backend.Get(ctx, name)
		assert.True(t, domain.IsNotFound(err), name)
	}
}

func TestStage_FailedAliasWriteRestoresPrimary(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, Set(ctx, NewStore(mem), DailyQuoteDate, domain.DateKey("2024-03-14")))
	before, err := mem.Get(ctx, "dailyQuoteDate")
	require.NoError(t, err)

	s := NewStore(failingNames{Storage: mem, names: map[string]bool{"dayBasedQuoteDate": true}})

	err = Stage(s, DailyQuoteDate, domain.DateKey("2024-03-15")).Execute(ctx)
	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))

	after, err := mem.Get(ctx, "dailyQuoteDate")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{
		"dailyQuote", "dailyQuoteDate", "gentleStreakData", "savedQuotes", "likedQuotes", "quoteHistory",
	}, Names())
	assert.Equal(t, LikedQuotes, CollectionKey(domain.CollectionLiked))
	assert.Equal(t, SavedQuotes, CollectionKey(domain.CollectionSaved))
}

func TestNewStore_NilBackendPanics(t *testing.T) {
	assert.Panics(t, func() { NewStore(nil) })
}

func TestStorageNames(t *testing.T) {
	assert.Equal(t, []string{"dailyQuote", "dayBasedQuote"}, StorageNames("dailyQuote"))
	assert.Equal(t, []string{"savedQuotes"}, StorageNames("savedQuotes"))
	assert.Equal(t, []string{"custom"}, StorageNames("custom"))
}
