package storage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jsamuelsen/daily-quote/internal/domain"
	"github.com/jsamuelsen/daily-quote/internal/ports"
)

// cacheEntry remembers either a value or the fact that the key is absent.
type cacheEntry struct {
	value   []byte
	missing bool
}

// CachedStore is a read-through LRU in front of another backend.
// Entries expire after ttl so writes made by other processes sharing the backend
// become visible within that bound.
type CachedStore struct {
	backend  ports.StorageBackend
	lru      *expirable.LRU[string, cacheEntry]
	onLookup func(hit bool)
}

// CacheOption configures a CachedStore.
type CacheOption func(*CachedStore)

// WithLookupHook is called on every Get with whether it was served from memory.
func WithLookupHook(fn func(hit bool)) CacheOption {
	return func(c *CachedStore) { c.onLookup = fn }
}

// NewCachedStore wraps backend with an LRU of size entries.
func NewCachedStore(backend ports.StorageBackend, size int, ttl time.Duration, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		backend:  backend,
		lru:      expirable.NewLRU[string, cacheEntry](size, nil, ttl),
		onLookup: func(bool) {},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get serves from memory or reads through to the backend.
func (c *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if e, ok := c.lru.Get(key); ok {
		c.onLookup(true)

		if e.missing {
			return nil, domain.NewNotFoundError("key", key)
		}

		return slices.Clone(e.value), nil
	}

	c.onLookup(false)

	v, err := c.backend.Get(ctx, key)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.lru.Add(key, cacheEntry{missing: true})
		return nil, err
	case err != nil:
		return nil, err
	}

	c.lru.Add(key, cacheEntry{value: slices.Clone(v)})

	return v, nil
}

// Set writes through and refreshes the cached copy.
func (c *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := c.backend.Set(ctx, key, value); err != nil {
		c.lru.Remove(key)
		return err
	}

	c.lru.Add(key, cacheEntry{value: slices.Clone(value)})

	return nil
}

// Delete removes key from the backend and caches its absence.
func (c *CachedStore) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		c.lru.Remove(key)
		return err
	}

	c.lru.Add(key, cacheEntry{missing: true})

	return nil
}

// Invalidate drops key so the next Get reads the backend.
func (c *CachedStore) Invalidate(key string) {
	c.lru.Remove(key)
}

// Len returns the number of cached entries.
func (c *CachedStore) Len() int {
	return c.lru.Len()
}

// Name reports the wrapped backend's name.
func (c *CachedStore) Name() string { return c.backend.Name() }

// Check delegates to the wrapped backend.
func (c *CachedStore) Check(ctx context.Context) error { return c.backend.Check(ctx) }

// Close purges the cache and closes the backend.
func (c *CachedStore) Close() error {
	c.lru.Purge()
	return c.backend.Close()
}
