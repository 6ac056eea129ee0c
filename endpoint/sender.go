// Package endpoint implements a layered endpoint stack: RateLimited
// (concurrency-bounded upstream access), Caching (KV-cache short-circuit
// for reorg-safe historical reads) and Retrying (fixed-delay retry
// policy). Caching wraps a *RateLimited directly, while Retrying wraps any
// Sender; the registry stacks all three for every upstream URL.
package endpoint

import (
	"context"

	"github.com/relayfabric/rpcnode/internal/jsonvalue"
)

// Sender performs one logical call and reports the upstream URL it is
// ultimately bound to, so a caller (the quorum router) can attribute
// successes and failures to a specific provider no matter how many layers
// deep the call travelled.
type Sender interface {
	Send(ctx context.Context, method string, params []any) (jsonvalue.Value, error)
	URL() string
}
