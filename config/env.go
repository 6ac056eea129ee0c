// Package config reads the fabric's environment-variable contract (the
// NODE_* variables) into typed Config/ChainConfig values. The surrounding
// agent's own configuration is out of scope here; the fabric's own
// construction-time configuration is part of its contract and is parsed
// directly, not deferred to a consumer.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lookup mirrors os.LookupEnv's signature so tests can inject a fake
// environment without mutating the real one.
type Lookup func(key string) (string, bool)

func lookupString(lookup Lookup, name string, def string) string {
	if v, ok := lookup(name); ok && v != "" {
		return v
	}
	return def
}

func lookupInt(lookup Lookup, name string, def int) (int, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", name, v, err)
	}
	return n, nil
}

func lookupBool(lookup Lookup, name string, def bool) bool {
	v, ok := lookup(name)
	if !ok || v == "" {
		return def
	}
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

// chainOverrideInt resolves "NAME_<chainID>" first, falling back to "NAME".
func chainOverrideInt(lookup Lookup, name string, chainID uint64, def int) (int, error) {
	specific := fmt.Sprintf("%s_%d", name, chainID)
	if v, ok := lookup(specific); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("config: %s=%q is not an integer: %w", specific, v, err)
		}
		return n, nil
	}
	return lookupInt(lookup, name, def)
}

// Config holds the fabric's process-wide settings: everything that isn't
// per-chain.
type Config struct {
	DisableProviderCaching   bool
	ProviderCacheNamespace   string
	ProviderCacheTTL         time.Duration
	BlockNumberTTL           time.Duration
	LogEveryNRateLimitErrors int
	CacheRedisAddr           string
	CacheRedisPassword       string
	MetricsNamespace         string
	LogDebug                 bool
}

const (
	defaultProviderCacheNamespace   = "DEFAULT_0"
	defaultProviderCacheTTLSeconds  = 30 * 24 * 60 * 60
	defaultBlockNumberTTLMillis     = 2000
	defaultLogEveryNRateLimitErrors = 100
	defaultMetricsNamespace         = "rpcfabric"
)

// Load reads the process-wide settings from lookup.
func Load(lookup Lookup) (Config, error) {
	ttlSeconds, err := lookupInt(lookup, "NODE_PROVIDER_CACHE_TTL", defaultProviderCacheTTLSeconds)
	if err != nil {
		return Config{}, err
	}
	blockNumberTTLMillis, err := lookupInt(lookup, "NODE_BLOCK_NUMBER_TTL", defaultBlockNumberTTLMillis)
	if err != nil {
		return Config{}, err
	}
	logEveryN, err := lookupInt(lookup, "NODE_LOG_EVERY_N_RATE_LIMIT_ERRORS", defaultLogEveryNRateLimitErrors)
	if err != nil {
		return Config{}, err
	}

	return Config{
		DisableProviderCaching:   lookupBool(lookup, "NODE_DISABLE_PROVIDER_CACHING", false),
		ProviderCacheNamespace:   lookupString(lookup, "NODE_PROVIDER_CACHE_NAMESPACE", defaultProviderCacheNamespace),
		ProviderCacheTTL:         time.Duration(ttlSeconds) * time.Second,
		BlockNumberTTL:           time.Duration(blockNumberTTLMillis) * time.Millisecond,
		LogEveryNRateLimitErrors: logEveryN,
		CacheRedisAddr:           lookupString(lookup, "NODE_CACHE_REDIS_ADDR", ""),
		CacheRedisPassword:       lookupString(lookup, "NODE_CACHE_REDIS_PASSWORD", ""),
		MetricsNamespace:         lookupString(lookup, "NODE_METRICS_NAMESPACE", defaultMetricsNamespace),
		LogDebug:                 lookupBool(lookup, "NODE_LOG_DEBUG", false),
	}, nil
}

// ChainConfig holds the settings resolved for one chain ID, with
// per-chain overrides already applied.
type ChainConfig struct {
	ChainID             uint64
	URLs                []string
	Timeout             time.Duration
	Retries             int
	RetryDelay          time.Duration
	NodeQuorumThreshold int
	MaxConcurrency      int
}

const (
	defaultTimeoutMillis  = 60000
	defaultRetries        = 2
	defaultRetryDelaySecs = 1
	defaultQuorum         = 1
	defaultMaxConcurrency = 25
)

// LoadChain reads the per-chain URL list and settings for chainID,
// applying NODE_X_<chainID> overrides over the NODE_X defaults.
func LoadChain(lookup Lookup, chainID uint64) (ChainConfig, error) {
	urls, err := chainURLs(lookup, chainID)
	if err != nil {
		return ChainConfig{}, err
	}
	if len(urls) == 0 {
		return ChainConfig{}, fmt.Errorf("config: no NODE_URL_%d or NODE_URLS_%d set", chainID, chainID)
	}

	timeoutMillis, err := chainOverrideInt(lookup, "NODE_TIMEOUT", chainID, defaultTimeoutMillis)
	if err != nil {
		return ChainConfig{}, err
	}
	retries, err := chainOverrideInt(lookup, "NODE_RETRIES", chainID, defaultRetries)
	if err != nil {
		return ChainConfig{}, err
	}
	if retries < 0 {
		return ChainConfig{}, fmt.Errorf("config: retries must be >= 0, got %d", retries)
	}
	retryDelaySecs, err := chainOverrideInt(lookup, "NODE_RETRY_DELAY", chainID, defaultRetryDelaySecs)
	if err != nil {
		return ChainConfig{}, err
	}
	if retryDelaySecs < 0 {
		return ChainConfig{}, fmt.Errorf("config: retryDelay must be >= 0, got %d", retryDelaySecs)
	}
	quorum, err := chainOverrideInt(lookup, "NODE_QUORUM", chainID, defaultQuorum)
	if err != nil {
		return ChainConfig{}, err
	}
	if quorum < 1 {
		return ChainConfig{}, fmt.Errorf("config: nodeQuorumThreshold must be >= 1, got %d", quorum)
	}
	if quorum > len(urls) {
		return ChainConfig{}, fmt.Errorf("config: nodeQuorumThreshold %d exceeds endpoint count %d", quorum, len(urls))
	}
	maxConcurrency, err := chainOverrideInt(lookup, "NODE_MAX_CONCURRENCY", chainID, defaultMaxConcurrency)
	if err != nil {
		return ChainConfig{}, err
	}
	if maxConcurrency < 1 {
		return ChainConfig{}, fmt.Errorf("config: maxConcurrency must be >= 1, got %d", maxConcurrency)
	}

	return ChainConfig{
		ChainID:             chainID,
		URLs:                urls,
		Timeout:             time.Duration(timeoutMillis) * time.Millisecond,
		Retries:             retries,
		RetryDelay:          time.Duration(retryDelaySecs) * time.Second,
		NodeQuorumThreshold: quorum,
		MaxConcurrency:      maxConcurrency,
	}, nil
}

func chainURLs(lookup Lookup, chainID uint64) ([]string, error) {
	listVar := fmt.Sprintf("NODE_URLS_%d", chainID)
	if v, ok := lookup(listVar); ok && v != "" {
		var urls []string
		if err := json.Unmarshal([]byte(v), &urls); err != nil {
			return nil, fmt.Errorf("config: %s is not a JSON array: %w", listVar, err)
		}
		return urls, nil
	}

	singleVar := fmt.Sprintf("NODE_URL_%d", chainID)
	if v, ok := lookup(singleVar); ok && v != "" {
		return []string{v}, nil
	}

	return nil, nil
}
