// Package transport dials the JSON-RPC 2.0 connection the fabric speaks to
// upstream nodes. It builds on go-ethereum's rpc.Client rather than
// hand-rolling request-ID sequencing and envelope decoding: the same
// client.Client().CallContext(ctx, &result, method, args...) shape used
// throughout the geth command-line tools to invoke arbitrary JSON-RPC
// methods (eth_pendingTransactions, web3_clientVersion,
// debug_traceTransaction, ...) is exactly what this fabric needs to call
// eth_getLogs, eth_call and friends against a node it doesn't otherwise
// understand.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/relayfabric/rpcnode/internal/jsonvalue"
)

// Client performs JSON-RPC 2.0 calls against a single upstream URL.
type Client struct {
	url     string
	rpc     *gethrpc.Client
	timeout time.Duration
}

// NewClient dials url over HTTP with the given per-call timeout. When
// gzipEnabled is false, the client declares "Accept-Encoding: identity" so
// the upstream won't bother compressing responses; left at its default the
// underlying transport negotiates gzip transparently, same as any other
// Go HTTP client.
func NewClient(url string, timeout time.Duration, gzipEnabled bool) (*Client, error) {
	rc, err := gethrpc.DialHTTP(url)
	if err != nil {
		return nil, fmt.Errorf("transport: cannot dial %s: %w", url, err)
	}
	if !gzipEnabled {
		rc.SetHeader("Accept-Encoding", "identity")
	}
	return &Client{url: url, rpc: rc, timeout: timeout}, nil
}

// RPCError is a semantic JSON-RPC error returned by the upstream node.
// RateLimited does not retry on it; Retrying, one layer up, retries it like
// any other failure.
type RPCError struct {
	Code    int
	Message string
	Data    json.RawMessage
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// RateLimitError signals that the upstream responded with a rate-limit
// status. RateLimited handles this specifically; every other caller
// should treat it like any other failure.
type RateLimitError struct {
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: http %d", e.StatusCode)
}

// Call performs one JSON-RPC request and returns the decoded result.
func (c *Client) Call(ctx context.Context, method string, params []any) (jsonvalue.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.rpc.CallContext(ctx, &raw, method, params...); err != nil {
		return jsonvalue.Value{}, c.translate(err)
	}
	return jsonvalue.Parse(raw)
}

// Close releases the underlying connection. Callers that outlive the
// fabric's own lifetime (none, today) should call it on shutdown.
func (c *Client) Close() { c.rpc.Close() }

func (c *Client) translate(err error) error {
	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return &RateLimitError{StatusCode: httpErr.StatusCode}
		}
		return fmt.Errorf("transport: %s returned http %d: %s", c.url, httpErr.StatusCode, httpErr.Body)
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		out := &RPCError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		var dataErr gethrpc.DataError
		if errors.As(err, &dataErr) {
			if d := dataErr.ErrorData(); d != nil {
				if encoded, mErr := json.Marshal(d); mErr == nil {
					out.Data = encoded
				}
			}
		}
		return out
	}

	return fmt.Errorf("transport: request to %s failed: %w", c.url, err)
}
