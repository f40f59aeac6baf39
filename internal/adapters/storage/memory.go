// Package storage provides the key-value backends behind ports.Storage.
//
// Every backend stores opaque JSON documents under the short key names declared in
// the keyspace package. Missing keys are reported as domain.ErrNotFound.
package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// MemoryStore keeps values in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, domain.NewNotFoundError("key", key)
	}

	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = slices.Clone(value)

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)

	return nil
}

// Name implements ports.HealthChecker.
func (m *MemoryStore) Name() string { return "storage:memory" }

// Check implements ports.HealthChecker.
func (m *MemoryStore) Check(context.Context) error { return nil }

// Close implements ports.StorageBackend.
func (m *MemoryStore) Close() error { return nil }
