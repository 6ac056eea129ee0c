package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{s.Addr()},
	})
	return NewRedisStoreFromClient(client)
}

func TestRedisStoreGetMiss(t *testing.T) {
	store := newTestRedisStore(t)

	_, err := store.Get(context.Background(), "missing-key")
	require.ErrorIs(t, err, ErrMissing)
}

func TestRedisStoreSetGetRoundTrip(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", `"0x10"`, time.Minute))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, `"0x10"`, val)
}

func TestRedisStoreExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{s.Addr()}})
	store := NewRedisStoreFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Second))
	s.FastForward(2 * time.Second)

	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMissing)
}
