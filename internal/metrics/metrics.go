// Package metrics exposes Prometheus instrumentation for the library services.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog cache metrics, labelled by key kind (game, search, genres, platforms)
	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igdb_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"kind"},
	)

	CatalogCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igdb_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"kind"},
	)

	// Upstream catalog API metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igdb_requests_total",
			Help: "Total number of requests sent to the catalog API",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "igdb_request_duration_seconds",
			Help:    "Duration of catalog API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	UpstreamBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "igdb_circuit_breaker_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Live activity feed metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_websocket_connections",
			Help: "Current number of connected activity feed clients",
		},
	)

	ActivityEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "Total number of library activity events published",
		},
		[]string{"type"},
	)

	// Reference data warmup
	WarmupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "igdb_warmup_last_success_timestamp",
			Help: "Unix timestamp of the last successful reference data warmup",
		},
	)

	WarmupErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "igdb_warmup_errors_total",
			Help: "Total number of failed reference data warmups",
		},
	)
)

// RecordCacheLookup records a catalog cache hit or miss
func RecordCacheLookup(kind string, hit bool) {
	if hit {
		CatalogCacheHits.WithLabelValues(kind).Inc()
		return
	}
	CatalogCacheMisses.WithLabelValues(kind).Inc()
}

// RecordUpstreamRequest records a catalog API call
func RecordUpstreamRequest(endpoint string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWarmup records the outcome of a reference data warmup
func RecordWarmup(err error) {
	if err != nil {
		WarmupErrors.Inc()
		return
	}
	WarmupLastSuccess.Set(float64(time.Now().Unix()))
}
