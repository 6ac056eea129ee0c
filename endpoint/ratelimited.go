package endpoint

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/relayfabric/rpcnode/internal/counter"
	"github.com/relayfabric/rpcnode/internal/jsonvalue"
	"github.com/relayfabric/rpcnode/log"
	"github.com/relayfabric/rpcnode/metrics"
	"github.com/relayfabric/rpcnode/transport"
)

// caller is the subset of transport.Client that RateLimited depends on, so
// tests can substitute a fake without spinning up an httptest.Server.
type caller interface {
	Call(ctx context.Context, method string, params []any) (jsonvalue.Value, error)
}

// RateLimitedOption configures a RateLimited endpoint at construction.
type RateLimitedOption func(*RateLimited)

// WithBackoffBase overrides the base rate-limit backoff delay, which
// otherwise defaults to one second (delay doubles each attempt, plus
// jitter). Intended for tests that need the backoff loop to settle
// quickly.
func WithBackoffBase(d time.Duration) RateLimitedOption {
	return func(r *RateLimited) { r.backoffBase = d }
}

// RateLimited wraps one upstream URL and admits at most maxConcurrency
// in-flight calls to it, absorbing rate-limit responses with an
// exponential backoff loop instead of surfacing them immediately.
type RateLimited struct {
	url            string
	chainID        uint64
	client         caller
	sem            chan struct{}
	inFlight       counter.Counter
	metrics        *metrics.Metrics
	backoffBase    time.Duration
	retries        int
	logEveryN      int
	rateLimitCount counter.Counter
}

// NewRateLimited returns a RateLimited endpoint admitting at most
// maxConcurrency concurrent calls to client, retrying rate-limit responses
// up to retries times before giving up.
func NewRateLimited(chainID uint64, rawURL string, client caller, maxConcurrency, retries, logEveryN int, m *metrics.Metrics, opts ...RateLimitedOption) *RateLimited {
	r := &RateLimited{
		url:         rawURL,
		chainID:     chainID,
		client:      client,
		sem:         make(chan struct{}, maxConcurrency),
		metrics:     m,
		backoffBase: time.Second,
		retries:     retries,
		logEveryN:   logEveryN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RateLimited) URL() string { return r.url }

func (r *RateLimited) host() string {
	u, err := url.Parse(r.url)
	if err != nil {
		return r.url
	}
	return u.Host
}

// Send admits the call under the concurrency semaphore (FIFO since Go
// channels release waiters in send order) and absorbs rate-limit
// responses locally via exponential backoff, only surfacing an error once
// the attempt budget is exhausted.
func (r *RateLimited) Send(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	if err := ctx.Err(); err != nil {
		return jsonvalue.Value{}, err
	}

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return jsonvalue.Value{}, ctx.Err()
	}
	defer func() { <-r.sem }()

	n := r.inFlight.Inc()
	r.observeInFlight(n)
	defer func() {
		r.inFlight.Dec()
		r.observeInFlight(r.inFlight.Load())
	}()

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		v, err := r.client.Call(ctx, method, params)
		if err == nil {
			return v, nil
		}

		var rlErr *transport.RateLimitError
		if !errors.As(err, &rlErr) {
			return jsonvalue.Value{}, err
		}

		lastErr = err
		r.noteRateLimit()

		if attempt == r.retries {
			break
		}

		delay := r.backoffDelay(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return jsonvalue.Value{}, ctx.Err()
		}
	}

	return jsonvalue.Value{}, fmt.Errorf("endpoint: %s exhausted rate-limit retries: %w", r.host(), lastErr)
}

func (r *RateLimited) backoffDelay(attempt int) time.Duration {
	base := r.backoffBase * time.Duration(1<<uint(attempt))
	return base + time.Duration(rand.Float64()*float64(base))
}

func (r *RateLimited) observeInFlight(n uint32) {
	if r.metrics == nil {
		return
	}
	r.metrics.InFlightRequests.WithLabelValues(fmt.Sprint(r.chainID), r.host()).Set(float64(n))
}

func (r *RateLimited) noteRateLimit() {
	if r.metrics != nil {
		r.metrics.RateLimitEvents.WithLabelValues(fmt.Sprint(r.chainID), r.host()).Inc()
	}
	n := r.rateLimitCount.Inc()
	if r.logEveryN > 0 && n%uint32(r.logEveryN) == 0 {
		log.Warnf("endpoint: %s hit rate limit %d times", r.host(), n)
	}
}
