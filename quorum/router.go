package quorum

import (
	"context"
	"fmt"
	"sync"

	"github.com/relayfabric/rpcnode/endpoint"
	"github.com/relayfabric/rpcnode/internal/jsonvalue"
	"github.com/relayfabric/rpcnode/log"
	"github.com/relayfabric/rpcnode/metrics"
)

// Router owns an ordered list of endpoints for one chain and dispatches a
// logical call across a quorum-sized prefix, promoting fallbacks on
// failure or disagreement. Endpoints are expected to already carry
// their own retry policy (endpoint.Retrying) — the router's own fallback
// promotion is a distinct, coarser-grained recovery path.
type Router struct {
	chainID   uint64
	endpoints []endpoint.Sender
	threshold int
	metrics   *metrics.Metrics
}

// New returns a Router over endpoints in preference order. threshold is
// nodeQuorumThreshold; it must be between 1 and len(endpoints) inclusive.
func New(chainID uint64, endpoints []endpoint.Sender, threshold int, m *metrics.Metrics) (*Router, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("quorum: nodeQuorumThreshold must be >= 1, got %d", threshold)
	}
	if threshold > len(endpoints) {
		return nil, fmt.Errorf("quorum: nodeQuorumThreshold %d exceeds endpoint count %d", threshold, len(endpoints))
	}
	return &Router{chainID: chainID, endpoints: endpoints, threshold: threshold, metrics: m}, nil
}

// slotResult is the terminal outcome of one required dispatch slot.
type slotResult struct {
	value  jsonvalue.Value
	url    string
	err    error
	failed []ProviderFailure
}

// fallbackPool is a thread-safe deque of endpoints consumed from the
// front, ensuring no endpoint backs more than one required slot in the
// same logical call.
type fallbackPool struct {
	mu   sync.Mutex
	rest []endpoint.Sender
}

func (p *fallbackPool) pop() (endpoint.Sender, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.rest) == 0 {
		return nil, false
	}
	e := p.rest[0]
	p.rest = p.rest[1:]
	return e, true
}

func (p *fallbackPool) drain() []endpoint.Sender {
	p.mu.Lock()
	defer p.mu.Unlock()
	rest := p.rest
	p.rest = nil
	return rest
}

// Send dispatches method/params across the required endpoints, resolving
// disagreement via fallback tie-break, and returns the quorum-agreed
// value.
func (r *Router) Send(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	q := requiredQuorum(method, params, r.threshold)
	required := r.endpoints[:q]
	pool := &fallbackPool{rest: append([]endpoint.Sender(nil), r.endpoints[q:]...)}

	slots := r.dispatchRequired(ctx, method, params, required, pool)

	var failed []ProviderFailure
	var succeeded []slotResult
	for _, s := range slots {
		if s.err != nil {
			failed = append(failed, s.failed...)
			continue
		}
		succeeded = append(succeeded, s)
	}

	if len(failed) > 0 {
		succeededURLs := make([]string, 0, len(succeeded))
		for _, s := range succeeded {
			succeededURLs = append(succeededURLs, s.url)
		}
		if r.metrics != nil {
			r.metrics.NotEnoughProviders.WithLabelValues(fmt.Sprint(r.chainID), method).Inc()
		}
		return jsonvalue.Value{}, &ProviderError{Failed: failed, Succeeded: succeededURLs}
	}

	exclude := excludedFields(method)
	if allAgree(succeeded, exclude) {
		if r.metrics != nil {
			r.metrics.QuorumAgreements.WithLabelValues(fmt.Sprint(r.chainID), method).Inc()
		}
		return succeeded[0].value, nil
	}

	return r.resolveTies(ctx, method, params, pool, succeeded, exclude, q)
}

// dispatchRequired runs one slot per required endpoint concurrently. A
// slot that fails pops a fallback from pool and retries until it either
// succeeds or the pool is exhausted.
func (r *Router) dispatchRequired(ctx context.Context, method string, params []any, required []endpoint.Sender, pool *fallbackPool) []slotResult {
	results := make([]slotResult, len(required))
	var wg sync.WaitGroup
	for i, first := range required {
		wg.Add(1)
		go func(i int, current endpoint.Sender) {
			defer wg.Done()
			results[i] = r.runSlot(ctx, method, params, current, pool)
		}(i, first)
	}
	wg.Wait()
	return results
}

func (r *Router) runSlot(ctx context.Context, method string, params []any, current endpoint.Sender, pool *fallbackPool) slotResult {
	var failed []ProviderFailure
	for {
		v, err := current.Send(ctx, method, params)
		if err == nil {
			return slotResult{value: v, url: current.URL()}
		}

		failed = append(failed, ProviderFailure{URL: current.URL(), Err: err})
		next, ok := pool.pop()
		if !ok {
			return slotResult{err: err, failed: failed}
		}
		current = next
	}
}

// allAgree reports whether every succeeded slot's value is equal under the
// result-equality relation.
func allAgree(succeeded []slotResult, exclude []string) bool {
	for i := 1; i < len(succeeded); i++ {
		if !jsonvalue.Equal(succeeded[0].value, succeeded[i].value, exclude...) {
			return false
		}
	}
	return true
}

// resolveTies dispatches the remaining fallbacks in parallel and tallies
// every collected result into equivalence classes, returning the top
// class's value if it meets the required quorum.
func (r *Router) resolveTies(ctx context.Context, method string, params []any, pool *fallbackPool, required []slotResult, exclude []string, q int) (jsonvalue.Value, error) {
	remaining := pool.drain()

	type attempt struct {
		url   string
		value jsonvalue.Value
		err   error
	}
	extra := make([]attempt, len(remaining))
	var wg sync.WaitGroup
	for i, e := range remaining {
		wg.Add(1)
		go func(i int, e endpoint.Sender) {
			defer wg.Done()
			v, err := e.Send(ctx, method, params)
			extra[i] = attempt{url: e.URL(), value: v, err: err}
		}(i, e)
	}
	wg.Wait()

	type class struct {
		value jsonvalue.Value
		urls  []string
	}
	var classes []class
	place := func(url string, v jsonvalue.Value) {
		for i := range classes {
			if jsonvalue.Equal(classes[i].value, v, exclude...) {
				classes[i].urls = append(classes[i].urls, url)
				return
			}
		}
		classes = append(classes, class{value: v, urls: []string{url}})
	}

	for _, s := range required {
		place(s.url, s.value)
	}

	var failed []ProviderFailure
	for _, a := range extra {
		if a.err != nil {
			failed = append(failed, ProviderFailure{URL: a.url, Err: a.err})
			continue
		}
		place(a.url, a.value)
	}

	best := 0
	for i := range classes {
		if len(classes[i].urls) > len(classes[best].urls) {
			best = i
		}
	}

	if len(classes) == 0 {
		return jsonvalue.Value{}, &QuorumError{Required: q, BestCount: 0, Failed: failed}
	}

	if len(classes[best].urls) >= q {
		var disagreements []Disagreement
		for i := range classes {
			if i == best {
				continue
			}
			for _, u := range classes[i].urls {
				disagreements = append(disagreements, Disagreement{URL: u, Value: classes[i].value.String()})
			}
		}
		if len(disagreements) > 0 {
			log.Warnf("quorum: chain %d method %s resolved with disagreement: %d agreed, %d disagreed: %v",
				r.chainID, method, len(classes[best].urls), len(disagreements), disagreements)
			if r.metrics != nil {
				r.metrics.QuorumDisagreements.WithLabelValues(fmt.Sprint(r.chainID), method).Inc()
			}
		} else if r.metrics != nil {
			r.metrics.QuorumAgreements.WithLabelValues(fmt.Sprint(r.chainID), method).Inc()
		}
		return classes[best].value, nil
	}

	var disagreements []Disagreement
	for i := range classes {
		for _, u := range classes[i].urls {
			disagreements = append(disagreements, Disagreement{URL: u, Value: classes[i].value.String()})
		}
	}
	if r.metrics != nil {
		r.metrics.NotEnoughProviders.WithLabelValues(fmt.Sprint(r.chainID), method).Inc()
	}
	return jsonvalue.Value{}, &QuorumError{Required: q, BestCount: len(classes[best].urls), Disagreements: disagreements, Failed: failed}
}
