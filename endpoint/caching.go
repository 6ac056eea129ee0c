package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/relayfabric/rpcnode/cache"
	"github.com/relayfabric/rpcnode/internal/headcache"
	"github.com/relayfabric/rpcnode/internal/jsonvalue"
	"github.com/relayfabric/rpcnode/metrics"
)

// logsRange is the subset of an eth_getLogs filter object the cacheability
// predicate needs; every other field is opaque and passed through.
type logsRange struct {
	FromBlock string `json:"fromBlock"`
	ToBlock   string `json:"toBlock"`
}

// Caching wraps a RateLimited endpoint and short-circuits cacheable calls
// against a shared KV store. Two-phase: it decides cacheability,
// then either serves the stored value or delegates upstream and writes the
// result back.
type Caching struct {
	inner         *RateLimited
	store         cache.Store
	namespace     string
	endpointURL   *url.URL
	chainID       uint64
	reorgDistance uint64
	ttl           time.Duration
	head          *headcache.Cache
	metrics       *metrics.Metrics
}

// NewCaching wraps inner with a KV cache. store may be nil, in which case
// every call is treated as uncacheable. blockNumberTTL governs how often
// the amortized eth_blockNumber probe refreshes.
func NewCaching(chainID uint64, inner *RateLimited, store cache.Store, namespace string, reorgDistance uint64, ttl, blockNumberTTL time.Duration, m *metrics.Metrics) (*Caching, error) {
	u, err := url.Parse(inner.URL())
	if err != nil {
		return nil, fmt.Errorf("endpoint: cannot parse endpoint url %q: %w", inner.URL(), err)
	}

	c := &Caching{
		inner:         inner,
		store:         store,
		namespace:     namespace,
		endpointURL:   u,
		chainID:       chainID,
		reorgDistance: reorgDistance,
		ttl:           ttl,
		metrics:       m,
	}
	c.head = headcache.New(blockNumberTTL, c.fetchHead)
	return c, nil
}

func (c *Caching) URL() string { return c.inner.URL() }

func (c *Caching) fetchHead(ctx context.Context) (uint64, error) {
	v, err := c.inner.Send(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	s, ok := v.Raw().(string)
	if !ok {
		return 0, fmt.Errorf("endpoint: eth_blockNumber returned non-string result %v", v.Raw())
	}
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, fmt.Errorf("endpoint: eth_blockNumber returned malformed hex %q: %w", s, err)
	}
	return n, nil
}

// Send serves method/params from cache when cacheable, otherwise delegates
// to inner and, on success, writes the result back under its cache key.
func (c *Caching) Send(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	cacheable, key, err := c.cacheabilityAndKey(ctx, method, params)
	if err != nil {
		return jsonvalue.Value{}, err
	}

	if !cacheable {
		return c.inner.Send(ctx, method, params)
	}

	if v, ok := c.lookup(ctx, method, key); ok {
		return v, nil
	}

	v, err := c.inner.Send(ctx, method, params)
	if err != nil {
		return jsonvalue.Value{}, err
	}

	c.store.Set(ctx, key, v.String(), c.ttl) //nolint:errcheck // best-effort write; cache is an optimization
	return v, nil
}

func (c *Caching) lookup(ctx context.Context, method, key string) (jsonvalue.Value, bool) {
	raw, err := c.store.Get(ctx, key)
	chainLabel := fmt.Sprint(c.chainID)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CacheMisses.WithLabelValues(chainLabel, method).Inc()
		}
		return jsonvalue.Value{}, false
	}

	v, err := jsonvalue.Parse([]byte(raw))
	if err != nil {
		if c.metrics != nil {
			c.metrics.CacheMisses.WithLabelValues(chainLabel, method).Inc()
		}
		return jsonvalue.Value{}, false
	}

	if c.metrics != nil {
		c.metrics.CacheHits.WithLabelValues(chainLabel, method).Inc()
	}
	return v, true
}

// cacheabilityAndKey decides whether method/params is safely cacheable. A
// false result with a nil error means "uncacheable, proceed upstream
// normally"; a non-nil error means the call itself is malformed
// (fromBlock > toBlock).
func (c *Caching) cacheabilityAndKey(ctx context.Context, method string, params []any) (bool, string, error) {
	if c.store == nil || method != "eth_getLogs" || len(params) == 0 {
		return false, "", nil
	}

	data, err := json.Marshal(params[0])
	if err != nil {
		return false, "", nil
	}
	var r logsRange
	if err := json.Unmarshal(data, &r); err != nil {
		return false, "", nil
	}

	fromBlock, ok := tryParseHexUint(r.FromBlock)
	if !ok {
		return false, "", nil
	}
	toBlock, ok := tryParseHexUint(r.ToBlock)
	if !ok {
		return false, "", nil
	}

	if fromBlock > toBlock {
		return false, "", fmt.Errorf("endpoint: eth_getLogs fromBlock %s is after toBlock %s", r.FromBlock, r.ToBlock)
	}

	head, err := c.head.Get(ctx)
	if err != nil {
		// Head amortization failing doesn't block an otherwise valid call;
		// the cache is an optimization, so fail open to uncacheable.
		return false, "", nil
	}

	if head < c.reorgDistance || toBlock >= head-c.reorgDistance {
		return false, "", nil
	}

	key, err := cache.Key(c.namespace, c.endpointURL, c.chainID, method, params)
	if err != nil {
		return false, "", nil
	}
	return true, key, nil
}

// tryParseHexUint reports whether s is a canonical "0x"-prefixed quantity,
// per hexutil's strict decoding (no leading zeros beyond a bare "0x0"). A
// relative tag like "latest" or a malformed quantity both come back false,
// which cacheabilityAndKey treats identically: fall back to uncacheable.
func tryParseHexUint(s string) (uint64, bool) {
	n, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
