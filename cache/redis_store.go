package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relayfabric/rpcnode/log"
)

const (
	getTimeout = 1 * time.Second
	setTimeout = 2 * time.Second
)

// RedisStore is the production Store backend, shared across every endpoint
// of every chain in the process.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore dials addr (and, if set, authenticates with password) and
// verifies reachability before returning.
func NewRedisStore(addr, password string) (*RedisStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), getTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: cannot reach redis at %q: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an already-constructed client, primarily
// for tests backed by miniredis.
func NewRedisStoreFromClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, getTimeout)
	defer cancel()

	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMissing
	}
	if err != nil {
		log.Errorf("cache: failed to get key %q: %s", key, err)
		return "", ErrMissing
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, setTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
