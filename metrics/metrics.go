// Package metrics defines the fabric's Prometheus signals: admission
// pressure, cache effectiveness, rate-limit backoff and quorum agreement.
// Vectors are grouped into a Metrics value rather than registered as
// package globals, so that a process hosting several independently
// constructed routers (or a test suite constructing many) doesn't
// collide on a single global Prometheus registerer.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the vectors registered for one EndpointRegistry.
type Metrics struct {
	InFlightRequests    *prometheus.GaugeVec
	CacheHits           *prometheus.CounterVec
	CacheMisses         *prometheus.CounterVec
	RateLimitEvents     *prometheus.CounterVec
	QuorumAgreements    *prometheus.CounterVec
	QuorumDisagreements *prometheus.CounterVec
	NotEnoughProviders  *prometheus.CounterVec
}

// New builds the fabric's metric vectors under namespace without
// registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		InFlightRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "endpoint_in_flight_requests",
				Help:      "Number of requests currently in flight per endpoint.",
			},
			[]string{"chain_id", "endpoint_host"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Number of cacheable calls served from the KV cache.",
			},
			[]string{"chain_id", "method"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Number of cacheable calls that missed the KV cache.",
			},
			[]string{"chain_id", "method"},
		),
		RateLimitEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_events_total",
				Help:      "Number of rate-limit responses observed per endpoint.",
			},
			[]string{"chain_id", "endpoint_host"},
		),
		QuorumAgreements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quorum_agreements_total",
				Help:      "Number of logical calls resolved with full provider agreement.",
			},
			[]string{"chain_id", "method"},
		),
		QuorumDisagreements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quorum_disagreements_total",
				Help:      "Number of logical calls resolved despite provider disagreement.",
			},
			[]string{"chain_id", "method"},
		),
		NotEnoughProviders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "not_enough_providers_total",
				Help:      "Number of logical calls rejected because too few providers succeeded or agreed.",
			},
			[]string{"chain_id", "method"},
		),
	}
}

// MustRegister registers every vector in m against reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.InFlightRequests,
		m.CacheHits,
		m.CacheMisses,
		m.RateLimitEvents,
		m.QuorumAgreements,
		m.QuorumDisagreements,
		m.NotEnoughProviders,
	)
}
