// Package headcache amortizes a slow, monotonically-advancing value (the
// chain head block number) across concurrent callers behind a short TTL.
// It is the in-process singleflight the caching endpoint needs so that N
// concurrent cacheable calls don't each trigger their own
// eth_blockNumber round trip: the first caller to find the TTL expired
// fetches and the rest wait on that one result instead of stampeding
// upstream.
package headcache

import (
	"context"
	"sync"
	"time"
)

// Fetcher retrieves the current value. It is expected to be safe to call
// concurrently, though Cache never calls it more than once at a time.
type Fetcher func(ctx context.Context) (uint64, error)

type waiter struct {
	value uint64
	err   error
}

// Cache memoizes the result of Fetcher for ttl, coalescing concurrent
// misses into a single in-flight fetch.
type Cache struct {
	ttl   time.Duration
	fetch Fetcher

	mu       sync.Mutex
	value    uint64
	deadline time.Time
	fetching bool
	waiters  []chan waiter
}

// New returns a Cache that refreshes via fetch at most once per ttl.
func New(ttl time.Duration, fetch Fetcher) *Cache {
	return &Cache{ttl: ttl, fetch: fetch}
}

// Get returns the cached value if still within ttl, otherwise triggers (or
// joins) a refresh. The returned value is a lower bound on the true head
// once it's serving a stale cached value — see CachingEndpoint's reorg
// horizon comparison, which tolerates that by design.
func (c *Cache) Get(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if time.Now().Before(c.deadline) {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}

	if c.fetching {
		ch := make(chan waiter, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()
		select {
		case w := <-ch:
			return w.value, w.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	c.fetching = true
	c.mu.Unlock()

	v, err := c.fetch(ctx)

	c.mu.Lock()
	c.fetching = false
	if err == nil {
		c.value = v
		c.deadline = time.Now().Add(c.ttl)
	}
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		w <- waiter{value: v, err: err}
	}
	return v, err
}
