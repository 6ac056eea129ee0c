package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func TestCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "eth_blockNumber", req.Method)

		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`"0x10"`)})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, false)
	require.NoError(t, err)
	v, err := c.Call(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	require.Equal(t, `"0x10"`, v.String())
}

func TestCallRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcErrorBody{Code: -32000, Message: "execution reverted"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, false)
	require.NoError(t, err)
	_, err = c.Call(context.Background(), "eth_call", nil)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, -32000, rpcErr.Code)
}

func TestCallRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, false)
	require.NoError(t, err)
	_, err = c.Call(context.Background(), "eth_getLogs", nil)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
}

func TestCallDisablesGzipNegotiation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "identity", r.Header.Get("Accept-Encoding"))

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"number":"0x1"}`)})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, false)
	require.NoError(t, err)
	v, err := c.Call(context.Background(), "eth_getBlockByNumber", nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"number":"0x1"}`, v.String())
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Millisecond, false)
	require.NoError(t, err)
	_, err = c.Call(context.Background(), "eth_blockNumber", nil)
	require.Error(t, err)
}
