package endpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/relayfabric/rpcnode/internal/jsonvalue"
)

// Retrying wraps a Sender and retries a failed call up to retries times
// with a fixed retryDelay between attempts. It does not classify
// errors — every failure mode the wrapped Sender surfaces is retried the
// same way; the rate-limit-specific backoff lives one layer down in
// RateLimited.
type Retrying struct {
	inner      Sender
	retries    int
	retryDelay time.Duration
}

// NewRetrying wraps inner with up to retries retries (retries+1 total
// attempts), waiting retryDelay between attempts.
func NewRetrying(inner Sender, retries int, retryDelay time.Duration) *Retrying {
	return &Retrying{inner: inner, retries: retries, retryDelay: retryDelay}
}

func (r *Retrying) URL() string { return r.inner.URL() }

func (r *Retrying) Send(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		v, err := r.inner.Send(ctx, method, params)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == r.retries {
			break
		}

		select {
		case <-time.After(r.retryDelay):
		case <-ctx.Done():
			return jsonvalue.Value{}, ctx.Err()
		}
	}
	return jsonvalue.Value{}, fmt.Errorf("endpoint: %s failed after %d attempts: %w", r.inner.URL(), r.retries+1, lastErr)
}
