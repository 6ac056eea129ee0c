package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(MapLookup(nil))
	require.NoError(t, err)

	require.False(t, cfg.DisableProviderCaching)
	require.Equal(t, "DEFAULT_0", cfg.ProviderCacheNamespace)
	require.Equal(t, 30*24*time.Hour, cfg.ProviderCacheTTL)
	require.Equal(t, 2*time.Second, cfg.BlockNumberTTL)
	require.Equal(t, 100, cfg.LogEveryNRateLimitErrors)
	require.Equal(t, "rpcfabric", cfg.MetricsNamespace)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(MapLookup(map[string]string{
		"NODE_DISABLE_PROVIDER_CACHING": "true",
		"NODE_PROVIDER_CACHE_NAMESPACE": "custom-ns",
		"NODE_LOG_DEBUG":                "TRUE",
	}))
	require.NoError(t, err)

	require.True(t, cfg.DisableProviderCaching)
	require.Equal(t, "custom-ns", cfg.ProviderCacheNamespace)
	require.True(t, cfg.LogDebug)
}

func TestLoadChainRequiresURL(t *testing.T) {
	_, err := LoadChain(MapLookup(nil), 1)
	require.Error(t, err)
}

func TestLoadChainSingleURL(t *testing.T) {
	cc, err := LoadChain(MapLookup(map[string]string{
		"NODE_URL_1": "https://rpc.example.com",
	}), 1)
	require.NoError(t, err)

	require.Equal(t, []string{"https://rpc.example.com"}, cc.URLs)
	require.Equal(t, 60*time.Second, cc.Timeout)
	require.Equal(t, 2, cc.Retries)
	require.Equal(t, time.Second, cc.RetryDelay)
	require.Equal(t, 1, cc.NodeQuorumThreshold)
	require.Equal(t, 25, cc.MaxConcurrency)
}

func TestLoadChainURLList(t *testing.T) {
	cc, err := LoadChain(MapLookup(map[string]string{
		"NODE_URLS_1": `["https://a.example.com","https://b.example.com"]`,
	}), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cc.URLs)
}

func TestLoadChainPerChainOverrideWins(t *testing.T) {
	cc, err := LoadChain(MapLookup(map[string]string{
		"NODE_URL_1":     "https://rpc.example.com",
		"NODE_RETRIES":   "5",
		"NODE_RETRIES_1": "9",
	}), 1)
	require.NoError(t, err)
	require.Equal(t, 9, cc.Retries)
}

func TestLoadChainGlobalFallback(t *testing.T) {
	cc, err := LoadChain(MapLookup(map[string]string{
		"NODE_URL_1":   "https://rpc.example.com",
		"NODE_RETRIES": "5",
	}), 1)
	require.NoError(t, err)
	require.Equal(t, 5, cc.Retries)
}

func TestLoadChainQuorumExceedsEndpointsIsError(t *testing.T) {
	_, err := LoadChain(MapLookup(map[string]string{
		"NODE_URL_1":  "https://rpc.example.com",
		"NODE_QUORUM": "2",
	}), 1)
	require.Error(t, err)
}

func TestLoadChainNegativeRetriesIsError(t *testing.T) {
	_, err := LoadChain(MapLookup(map[string]string{
		"NODE_URL_1":   "https://rpc.example.com",
		"NODE_RETRIES": "-1",
	}), 1)
	require.Error(t, err)
}

func TestLoadChainMalformedURLListIsError(t *testing.T) {
	_, err := LoadChain(MapLookup(map[string]string{
		"NODE_URLS_1": "not-json",
	}), 1)
	require.Error(t, err)
}
