// Package staging groups the reads and writes of one profile update.
//
// Reads are memoized per batch with Fetch, so an update that consults the same key
// twice hits storage once. Writes are staged as Actions and applied by Commit in
// order; if one fails, the already applied actions are rolled back in reverse.
//
//	b := staging.New()
//	saved, err := staging.Fetch(ctx, b, "saved", loadSaved)
//	...
//	_ = b.Add(keyspace.Stage(store, keyspace.SavedQuotes, next))
//	_ = b.Add(keyspace.Stage(store, keyspace.Streak, rec))
//	err = b.Commit(ctx)
package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/daily-quote/internal/platform/logging"
)

// ErrAlreadyCommitted is returned when adding to or committing a batch twice.
var ErrAlreadyCommitted = errors.New("batch already committed")

// Action is a staged write.
type Action interface {
	// Execute performs the write.
	Execute(ctx context.Context) error

	// Rollback restores the state before Execute.
	Rollback(ctx context.Context) error

	// Description names the action in logs and errors.
	Description() string
}

// Batch memoizes reads and holds staged writes.
type Batch struct {
	cache     sync.Map
	mu        sync.Mutex
	actions   []Action
	committed bool
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{}
}

// Fetch returns the memoized value for key, calling fn on first use.
// Errors are not cached.
func Fetch[T any](ctx context.Context, b *Batch, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	if cached, ok := b.cache.Load(key); ok {
		return cached.(T), nil //nolint:forcetypeassert // keys are bound to one type by the caller
	}

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	actual, _ := b.cache.LoadOrStore(key, v)

	return actual.(T), nil //nolint:forcetypeassert // see above
}

// Add stages actions for Commit.
func (b *Batch) Add(actions ...Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.committed {
		return ErrAlreadyCommitted
	}

	b.actions = append(b.actions, actions...)

	return nil
}

// Commit executes staged actions in order.
// On failure, executed actions are rolled back in reverse order. The failing
// action is expected to leave no partial write behind.
func (b *Batch) Commit(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.committed {
		return ErrAlreadyCommitted
	}

	for i, action := range b.actions {
		if err := action.Execute(ctx); err != nil {
			rollback(ctx, b.actions[:i])
			return fmt.Errorf("action %q failed: %w", action.Description(), err)
		}
	}

	b.committed = true

	return nil
}

// Actions returns a copy of the staged actions.
func (b *Batch) Actions() []Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Action, len(b.actions))
	copy(out, b.actions)

	return out
}

func rollback(ctx context.Context, executed []Action) {
	logger := logging.FromContext(ctx)

	for i := len(executed) - 1; i >= 0; i-- {
		if err := executed[i].Rollback(ctx); err != nil {
			logger.ErrorContext(ctx, "rollback failed",
				slog.String("action", executed[i].Description()),
				slog.String("error", err.Error()))
		}
	}
}
