// Package cache implements the key-value cache contract consumed by the
// fabric's CachingEndpoint: historical, reorg-safe JSON-RPC results are
// memoized under a key that binds the result to the namespace, the
// provider that produced it and the chain it was produced on.
package cache

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Key derives the cache key for a logical call against a specific
// endpoint, per the layout "<namespace>,<host>,<chain-id>:<method>,<params-json>".
func Key(namespace string, endpointURL *url.URL, chainID uint64, method string, params any) (string, error) {
	encodedParams, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("cache: cannot encode params for key: %w", err)
	}
	return fmt.Sprintf("%s,%s,%d:%s,%s", namespace, endpointURL.Host, chainID, method, encodedParams), nil
}
