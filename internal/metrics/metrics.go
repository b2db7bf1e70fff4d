// Package metrics defines the Prometheus collectors for the sessions
// service. All observation helpers are nil-safe so callers can run
// without metrics wired (tests, one-off tools).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for monitoring.
type Metrics struct {
	// Upstream client metrics
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamRetriesTotal  *prometheus.CounterVec

	// Processing pipeline metrics
	SessionsProcessedTotal *prometheus.CounterVec
	ProcessingDuration     prometheus.Histogram

	// Favicon cache metrics
	FaviconCacheHits   prometheus.Counter
	FaviconCacheMisses prometheus.Counter
}

// New creates the service collectors and registers them with the given
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umami_upstream_requests_total",
			Help: "Upstream API requests by endpoint and status class.",
		}, []string{"endpoint", "status"}),
		UpstreamRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "umami_upstream_retries_total",
			Help: "Upstream API request retries by endpoint.",
		}, []string{"endpoint"}),
		SessionsProcessedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sessions_processed_total",
			Help: "Processed session records by outcome.",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_processing_duration_seconds",
			Help:    "Wall-clock duration of one session page processing pass.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		FaviconCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "favicon_cache_hits_total",
			Help: "Favicon cache lookups answered from cache.",
		}),
		FaviconCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "favicon_cache_misses_total",
			Help: "Favicon cache lookups that fell through to resolution.",
		}),
	}

	reg.MustRegister(
		m.UpstreamRequestsTotal,
		m.UpstreamRetriesTotal,
		m.SessionsProcessedTotal,
		m.ProcessingDuration,
		m.FaviconCacheHits,
		m.FaviconCacheMisses,
	)
	return m
}

// ObserveRequest records one upstream request outcome.
func (m *Metrics) ObserveRequest(endpoint, status string) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObserveRetry records one upstream request retry.
func (m *Metrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.UpstreamRetriesTotal.WithLabelValues(endpoint).Inc()
}

// ObserveOutcome records one processed session record by outcome
// (valid, invalid, short, bot, crawler).
func (m *Metrics) ObserveOutcome(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.SessionsProcessedTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveProcessing records the duration of one processing pass in seconds.
func (m *Metrics) ObserveProcessing(seconds float64) {
	if m == nil {
		return
	}
	m.ProcessingDuration.Observe(seconds)
}

// ObserveCacheHit records a favicon cache hit.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.FaviconCacheHits.Inc()
}

// ObserveCacheMiss records a favicon cache miss.
func (m *Metrics) ObserveCacheMiss() {
	if m == nil {
		return
	}
	m.FaviconCacheMisses.Inc()
}
