package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jsamuelsen/daily-quote/internal/domain"
)

// ChangesChannel is the pub/sub channel, under the key prefix, carrying key changes.
const ChangesChannel = "key_changes"

// RedisStore keeps keys in Redis so several devices can share one profile.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects using a redis:// URL.
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return NewRedisStoreWithClient(redis.NewClient(opts), prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get reads key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.NewNotFoundError("key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return v, nil
}

// Set writes key without expiry.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (r *RedisStore) Name() string { return "storage:redis" }

// Check pings the server.
func (r *RedisStore) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// PublishChange broadcasts an encoded key change to every process on this server.
func (r *RedisStore) PublishChange(ctx context.Context, payload []byte) error {
	if err := r.client.Publish(ctx, r.prefix+ChangesChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	return nil
}

// SubscribeChanges streams broadcast key changes, its own included, until ctx
// is done or the connection is closed.
func (r *RedisStore) SubscribeChanges(ctx context.Context) (<-chan []byte, error) {
	ps := r.client.Subscribe(ctx, r.prefix+ChangesChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan []byte)

	go func() {
		defer close(out)
		defer ps.Close()

		messages := ps.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
