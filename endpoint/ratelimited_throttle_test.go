package endpoint

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/relayfabric/rpcnode/internal/jsonvalue"
	"github.com/relayfabric/rpcnode/transport"
	"github.com/stretchr/testify/require"
)

// throttledCaller simulates a public RPC provider's own rate limiter: it
// grants a fixed token budget per interval via rate.Limiter and returns
// *transport.RateLimitError once the budget is exhausted, independent of
// RateLimited's own backoff state. This lets the backoff test exercise a
// harness that behaves like a real provider under load instead of a
// scripted sequence of canned responses.
type throttledCaller struct {
	limiter *rate.Limiter
}

func (c *throttledCaller) Call(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	if !c.limiter.Allow() {
		return jsonvalue.Value{}, &transport.RateLimitError{StatusCode: 429}
	}
	return mustValueSilent(`"0x1"`), nil
}

func mustValueSilent(s string) jsonvalue.Value {
	v, err := jsonvalue.Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func TestRateLimitedBacksOffUnderSustainedThrottle(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(5*time.Millisecond), 1)
	// Spend the limiter's initial burst token so the first call is throttled
	// and Send has to go through its backoff loop.
	limiter.Allow()
	c := &throttledCaller{limiter: limiter}

	r := NewRateLimited(1, "http://node", c, 4, 5, 100, nil, WithBackoffBase(2*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := r.Send(ctx, "eth_blockNumber", nil)
	require.NoError(t, err, "request should eventually succeed once the limiter admits a token")
}
