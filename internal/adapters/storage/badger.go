package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// BadgerStore persists keys in an embedded BadgerDB directory.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore opens (or creates) a Badger database at dir.
func NewBadgerStore(dir, prefix string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}

	return &BadgerStore{db: db, prefix: prefix}, nil
}

func (b *BadgerStore) key(k string) []byte {
	return []byte(b.prefix + k)
}

// Get reads key in a read-only transaction.
func (b *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.NewNotFoundError("key", key)
		}

		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}

		out, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Set writes key in an update transaction.
func (b *BadgerStore) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), value)
	})
}

// Delete removes key.
func (b *BadgerStore) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(b.key(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}

		return err
	})
}

// Name implements ports.HealthChecker.
func (b *BadgerStore) Name() string { return "storage:badger" }

// Check fails once the database is closed.
func (b *BadgerStore) Check(context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger database is closed")
	}

	return nil
}

// Close flushes and closes the database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

// badgerLogger routes Badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) log(level slog.Level, format string, args ...any) {
	if l.logger == nil {
		return
	}

	l.logger.Log(context.Background(), level, fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l badgerLogger) Errorf(f string, a ...any)   { l.log(slog.LevelError, f, a...) }
func (l badgerLogger) Warningf(f string, a ...any) { l.log(slog.LevelWarn, f, a...) }
func (l badgerLogger) Infof(f string, a ...any)    { l.log(slog.LevelDebug, f, a...) }
func (l badgerLogger) Debugf(f string, a ...any)   { l.log(slog.LevelDebug, f, a...) }
