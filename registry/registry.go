// Package registry builds and memoizes one quorum.Router per chain from
// the fabric's environment configuration, exposed as an explicitly
// constructed dependency rather than process-global state, while
// preserving per-chain memoization via a single long-lived instance
// handed to consumers.
package registry

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relayfabric/rpcnode/cache"
	"github.com/relayfabric/rpcnode/config"
	"github.com/relayfabric/rpcnode/endpoint"
	"github.com/relayfabric/rpcnode/log"
	"github.com/relayfabric/rpcnode/metrics"
	"github.com/relayfabric/rpcnode/quorum"
	"github.com/relayfabric/rpcnode/transport"
)

type routerKey struct {
	chainID      uint64
	cacheEnabled bool
}

// Registry memoizes one quorum.Router per (chain-id, cache-enabled) key.
// Reads vastly outnumber inserts — a lookup for an already-built router is
// the hot path on every call — so it synchronizes with a read-preferring
// RWMutex rather than a single mutex.
type Registry struct {
	mu      sync.RWMutex
	routers map[routerKey]*quorum.Router

	cfg     config.Config
	lookup  config.Lookup
	store   cache.Store
	metrics *metrics.Metrics
}

// New builds a Registry from the environment seen through lookup. If reg is
// non-nil, the registry's metrics are registered against it; pass nil in
// tests that construct multiple registries to avoid collector collisions.
func New(lookup config.Lookup, reg prometheus.Registerer) (*Registry, error) {
	cfg, err := config.Load(lookup)
	if err != nil {
		return nil, err
	}

	log.SetDebug(cfg.LogDebug)

	r := &Registry{
		routers: make(map[routerKey]*quorum.Router),
		cfg:     cfg,
		lookup:  lookup,
		metrics: metrics.New(cfg.MetricsNamespace),
	}

	if reg != nil {
		r.metrics.MustRegister(reg)
	}

	if !cfg.DisableProviderCaching {
		store, err := newStore(cfg)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	return r, nil
}

func newStore(cfg config.Config) (cache.Store, error) {
	if cfg.CacheRedisAddr == "" {
		return cache.NewMemStore(), nil
	}
	return cache.NewRedisStore(cfg.CacheRedisAddr, cfg.CacheRedisPassword)
}

// Get returns the memoized router for chainID, lazily constructing one
// under the process-wide caching setting if absent.
func (r *Registry) Get(chainID uint64) (*quorum.Router, error) {
	return r.getOrBuild(chainID, !r.cfg.DisableProviderCaching)
}

// GetCached returns the memoized router for chainID without constructing
// one, erroring if no router has been built for that chain yet.
func (r *Registry) GetCached(chainID uint64) (*quorum.Router, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	router, ok := r.routers[routerKey{chainID: chainID, cacheEnabled: !r.cfg.DisableProviderCaching}]
	if !ok {
		return nil, fmt.Errorf("registry: no router constructed yet for chain %d", chainID)
	}
	return router, nil
}

func (r *Registry) getOrBuild(chainID uint64, cacheEnabled bool) (*quorum.Router, error) {
	key := routerKey{chainID: chainID, cacheEnabled: cacheEnabled}

	r.mu.RLock()
	router, ok := r.routers[key]
	r.mu.RUnlock()
	if ok {
		return router, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if router, ok := r.routers[key]; ok {
		return router, nil
	}

	router, err := r.build(chainID, cacheEnabled)
	if err != nil {
		return nil, err
	}
	r.routers[key] = router
	return router, nil
}

func (r *Registry) build(chainID uint64, cacheEnabled bool) (*quorum.Router, error) {
	chainCfg, err := config.LoadChain(r.lookup, chainID)
	if err != nil {
		return nil, err
	}

	reorgDistance, ok := config.MaxReorgDistance(chainID)
	if !ok {
		return nil, fmt.Errorf("registry: no reorg distance configured for chain %d", chainID)
	}

	var store cache.Store
	if cacheEnabled {
		store = r.store
	}

	senders := make([]endpoint.Sender, 0, len(chainCfg.URLs))
	for _, u := range chainCfg.URLs {
		client, err := transport.NewClient(u, chainCfg.Timeout, true)
		if err != nil {
			return nil, fmt.Errorf("registry: chain %d: %w", chainID, err)
		}
		rl := endpoint.NewRateLimited(chainID, u, client, chainCfg.MaxConcurrency, chainCfg.Retries, r.cfg.LogEveryNRateLimitErrors, r.metrics)

		caching, err := endpoint.NewCaching(chainID, rl, store, r.cfg.ProviderCacheNamespace, reorgDistance, r.cfg.ProviderCacheTTL, r.cfg.BlockNumberTTL, r.metrics)
		if err != nil {
			return nil, err
		}

		senders = append(senders, endpoint.NewRetrying(caching, chainCfg.Retries, chainCfg.RetryDelay))
	}

	return quorum.New(chainID, senders, chainCfg.NodeQuorumThreshold, r.metrics)
}
