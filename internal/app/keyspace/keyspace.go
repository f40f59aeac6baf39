// Package keyspace is the typed registry of persisted keys.
//
// Every value the application stores is declared once here as a Key[T]. Reads decode
// and validate the stored JSON against T, so a document written by an older or
// foreign client fails loudly instead of flowing into the domain half-parsed.
package keyspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// Key names a persisted value of type T.
type Key[T any] struct {
	name    string
	aliases []string
}

// NewKey declares a key. Aliases are legacy names read as a fallback and kept in sync on write.
func NewKey[T any](name string, aliases ...string) Key[T] {
	return Key[T]{name: name, aliases: aliases}
}

// Name returns the primary storage key.
func (k Key[T]) Name() string { return k.name }

// Aliases returns the legacy storage keys.
func (k Key[T]) Aliases() []string { return k.aliases }

func (k Key[T]) names() []string {
	return append([]string{k.name}, k.aliases...)
}

// Registered keys.
var (
	DailyQuote     = NewKey[domain.Quote]("dailyQuote", "dayBasedQuote")
	DailyQuoteDate = NewKey[domain.DateKey]("dailyQuoteDate", "dayBasedQuoteDate")
	Streak         = NewKey[domain.StreakRecord]("gentleStreakData")
	SavedQuotes    = NewKey[domain.Collection]("savedQuotes")
	LikedQuotes    = NewKey[domain.Collection]("likedQuotes")
	QuoteHistory   = NewKey[domain.History]("quoteHistory")
)

// CollectionKey returns the key backing a named collection.
func CollectionKey(name domain.CollectionName) Key[domain.Collection] {
	if name == domain.CollectionLiked {
		return LikedQuotes
	}

	return SavedQuotes
}

// Names lists every registered primary key.
func Names() []string {
	return []string{
		DailyQuote.Name(), DailyQuoteDate.Name(), Streak.Name(),
		SavedQuotes.Name(), LikedQuotes.Name(), QuoteHistory.Name(),
	}
}

// StorageNames expands a primary key into every storage name it is written under.
// Unknown keys map to themselves.
func StorageNames(primary string) []string {
	for _, names := range [][]string{
		DailyQuote.names(), DailyQuoteDate.names(), Streak.names(),
		SavedQuotes.names(), LikedQuotes.names(), QuoteHistory.names(),
	} {
		if names[0] == primary {
			return names
		}
	}

	return []string{primary}
}

// ErrSchema indicates a stored document does not match its key's type.
var ErrSchema = errors.New("stored value does not match schema")

// SchemaError reports a decode or validation failure for a stored key.
type SchemaError struct {
	Key string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("key %q: %v", e.Key, e.Err)
}

// Unwrap exposes ErrSchema and domain.ErrValidation alongside the cause.
func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchema, domain.ErrValidation, e.Err}
}

// Store reads and writes typed keys over a byte-level storage backend.
type Store struct {
	backend   ports.Storage
	publisher ports.EventPublisher
	origin    string
	validate  *validator.Validate
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher announces every write as a domain.KeyChanged event.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Store) { s.publisher = p }
}

// WithOrigin sets the identifier attached to published key changes.
func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// NewStore creates a typed store over backend.
func NewStore(backend ports.Storage, opts ...Option) *Store {
	if backend == nil {
		panic("keyspace: backend is required")
	}

	s := &Store{
		backend:   backend,
		publisher: ports.NopPublisher{},
		origin:    uuid.NewString(),
		validate:  newValidator(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Origin returns the identifier this store stamps on key change events.
func (s *Store) Origin() string { return s.origin }

// Backend returns the underlying byte store.
func (s *Store) Backend() ports.Storage { return s.backend }

// Get loads k. The bool is false when neither the key nor any alias is stored.
// Backend failures return a domain.StorageError; shape mismatches a SchemaError.
func Get[T any](ctx context.Context, s *Store, k Key[T]) (T, bool, error) {
	var zero T

	for _, name := range k.names() {
		raw, err := s.backend.Get(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}

		if err != nil {
			return zero, false, domain.NewStorageReadError(name, err)
		}

		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return zero, false, &SchemaError{Key: name, Err: err}
		}

		if err := s.check(v); err != nil {
			return zero, false, &SchemaError{Key: name, Err: err}
		}

		if name != k.name {
			logging.FromContext(ctx).DebugContext(ctx, "read legacy key",
				slog.String("key", k.name), slog.String("alias", name))
		}

		return v, true, nil
	}

	return zero, false, nil
}

// GetOr loads k and falls back to def when the key is missing, unreadable or malformed.
// Failures are logged, never returned.
func GetOr[T any](ctx context.Context, s *Store, k Key[T], def T) T {
	v, ok, err := Get(ctx, s, k)
	if err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "discarding stored value",
			slog.String("key", k.name), slog.String("error", err.Error()))

		return def
	}

	if !ok {
		return def
	}

	return v
}

// Set validates v and writes it under k and every alias.
func Set[T any](ctx context.Context, s *Store, k Key[T], v T) error {
	raw, err := s.encode(k.name, v)
	if err != nil {
		return err
	}

	for _, name := range k.names() {
		if err := s.backend.Set(ctx, name, raw); err != nil {
			return domain.NewStorageWriteError(name, err)
		}
	}

	s.announce(ctx, k.name, false)

	return nil
}

// Delete removes k and every alias.
func Delete[T any](ctx context.Context, s *Store, k Key[T]) error {
	for _, name := range k.names() {
		if err := s.backend.Delete(ctx, name); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.NewStorageDeleteError(name, err)
		}
	}

	s.announce(ctx, k.name, true)

	return nil
}

func (s *Store) announce(ctx context.Context, key string, deleted bool) {
	event := domain.KeyChanged{Key: key, Deleted: deleted, Origin: s.origin}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "failed to publish key change",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *Store) encode(name string, v any) ([]byte, error) {
	if err := s.check(v); err != nil {
		return nil, &SchemaError{Key: name, Err: err}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &SchemaError{Key: name, Err: err}
	}

	return raw, nil
}

// check validates structs, slices of structs and values with a Validate method.
func (s *Store) check(v any) error {
	if vv, ok := v.(interface{ Validate() error }); ok {
		return vv.Validate()
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Struct:
		return s.validate.Struct(v)
	case reflect.Slice:
		for i := range rv.Len() {
			if err := s.check(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
	}

	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("datekey", func(fl validator.FieldLevel) bool {
		return domain.DateKey(fl.Field().String()).Valid()
	})

	return v
}
