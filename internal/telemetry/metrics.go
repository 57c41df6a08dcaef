// Package telemetry holds the Prometheus metrics shared by both tiers.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks proxy behavior counters.
//
// Metrics:
//   - reedstreams_upstream_fetches_total: upstream fetches by schema and outcome
//   - reedstreams_cache_events_total: cache hits/misses/stores by tier
//   - reedstreams_throttled_total: requests rejected by the rate limiter
//   - reedstreams_rewrite_failures_total: aborted manifest rewrites
type Metrics struct {
	registry *prometheus.Registry

	upstreamFetches *prometheus.CounterVec
	cacheEvents     *prometheus.CounterVec
	throttled       prometheus.Counter
	rewriteFailures prometheus.Counter
}

// New creates and registers the proxy metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		upstreamFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reedstreams",
				Name:      "upstream_fetches_total",
				Help:      "Upstream fetches by schema and outcome",
			},
			[]string{"schema", "outcome"},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reedstreams",
				Name:      "cache_events_total",
				Help:      "Cache hits, misses and stores by tier",
			},
			[]string{"tier", "event"},
		),
		throttled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "reedstreams",
				Name:      "throttled_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
		rewriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "reedstreams",
				Name:      "rewrite_failures_total",
				Help:      "Manifest rewrites aborted by parse failures",
			},
		),
	}
	registry.MustRegister(m.upstreamFetches, m.cacheEvents, m.throttled, m.rewriteFailures)
	return m
}

func (m *Metrics) UpstreamFetch(schema, outcome string) {
	m.upstreamFetches.WithLabelValues(schema, outcome).Inc()
}

func (m *Metrics) CacheEvent(tier, event string) {
	m.cacheEvents.WithLabelValues(tier, event).Inc()
}

func (m *Metrics) Throttled() { m.throttled.Inc() }

func (m *Metrics) RewriteFailure() { m.rewriteFailures.Inc() }

// Handler exposes the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
