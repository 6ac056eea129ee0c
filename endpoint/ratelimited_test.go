package endpoint

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relayfabric/rpcnode/internal/jsonvalue"
	"github.com/relayfabric/rpcnode/transport"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	fn func(ctx context.Context, method string, params []any) (jsonvalue.Value, error)
}

func (f *fakeCaller) Call(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	return f.fn(ctx, method, params)
}

func mustValue(t *testing.T, s string) jsonvalue.Value {
	t.Helper()
	v, err := jsonvalue.Parse([]byte(s))
	require.NoError(t, err)
	return v
}

func TestRateLimitedBoundsConcurrency(t *testing.T) {
	var current, max atomic.Int64
	c := &fakeCaller{fn: func(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
		n := current.Add(1)
		for {
			old := max.Load()
			if n <= old || max.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return mustValue(t, `"0x1"`), nil
	}}

	r := NewRateLimited(1, "http://node", c, 2, 0, 100, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Send(context.Background(), "eth_blockNumber", nil)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, max.Load(), int64(2))
}

func TestRateLimitedRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int64
	c := &fakeCaller{fn: func(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
		if calls.Add(1) <= 2 {
			return jsonvalue.Value{}, &transport.RateLimitError{StatusCode: 429}
		}
		return mustValue(t, `"0x10"`), nil
	}}

	r := NewRateLimited(1, "http://node", c, 1, 3, 100, nil, WithBackoffBase(time.Millisecond))
	v, err := r.Send(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	require.Equal(t, `"0x10"`, v.String())
	require.EqualValues(t, 3, calls.Load())
}

func TestRateLimitedExhaustsRetries(t *testing.T) {
	c := &fakeCaller{fn: func(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
		return jsonvalue.Value{}, &transport.RateLimitError{StatusCode: 429}
	}}

	r := NewRateLimited(1, "http://node", c, 1, 2, 100, nil, WithBackoffBase(time.Millisecond))
	_, err := r.Send(context.Background(), "eth_blockNumber", nil)
	require.Error(t, err)
}

func TestRateLimitedDoesNotRetryNonRateLimitErrors(t *testing.T) {
	var calls atomic.Int64
	boom := &transport.RPCError{Code: -32000, Message: "boom"}
	c := &fakeCaller{fn: func(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
		calls.Add(1)
		return jsonvalue.Value{}, boom
	}}

	r := NewRateLimited(1, "http://node", c, 1, 3, 100, nil)
	_, err := r.Send(context.Background(), "eth_call", nil)
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 1, calls.Load())
}

func TestRateLimitedRespectsContextCancellation(t *testing.T) {
	c := &fakeCaller{fn: func(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
		return mustValue(t, `"0x1"`), nil
	}}
	r := NewRateLimited(1, "http://node", c, 1, 0, 100, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Send(ctx, "eth_blockNumber", nil)
	require.ErrorIs(t, err, context.Canceled)
}
