package keyspace

import (
	"context"
	"errors"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// SetAction is a staged write of one key. It satisfies staging.Action.
type SetAction[T any] struct {
	store *Store
	key   Key[T]
	value T

	// previous raw values per storage name; nil means the name was absent.
	previous map[string][]byte
}

// Stage prepares a write of v under k for a staging batch.
func Stage[T any](s *Store, k Key[T], v T) *SetAction[T] {
	return &SetAction[T]{store: s, key: k, value: v}
}

// Execute snapshots the current raw values and writes the new one.
// A write that fails part way restores the snapshot before returning.
func (a *SetAction[T]) Execute(ctx context.Context) error {
	a.previous = make(map[string][]byte, len(a.key.names()))

	for _, name := range a.key.names() {
		raw, err := a.store.backend.Get(ctx, name)

		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.previous[name] = nil
		case err != nil:
			return domain.NewStorageReadError(name, err)
		default:
			a.previous[name] = raw
		}
	}

	if err := Set(ctx, a.store, a.key, a.value); err != nil {
		return errors.Join(err, a.Rollback(ctx))
	}

	return nil
}

// Rollback restores the snapshot taken by Execute.
func (a *SetAction[T]) Rollback(ctx context.Context) error {
	var errs []error

	for name, raw := range a.previous {
		var err error
		if raw == nil {
			err = a.store.backend.Delete(ctx, name)
			if errors.Is(err, domain.ErrNotFound) {
				err = nil
			}
		} else {
			err = a.store.backend.Set(ctx, name, raw)
		}

		if err != nil {
			errs = append(errs, domain.NewStorageWriteError(name, err))
		}
	}

	a.store.announce(ctx, a.key.name, false)

	return errors.Join(errs...)
}

// Description names the key being written.
func (a *SetAction[T]) Description() string {
	return "write " + a.key.name
}
