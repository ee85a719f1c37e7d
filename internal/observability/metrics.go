package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueryTotal counts aggregation queries by operation.
	QueryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_query_total",
		Help: "Total number of aggregation queries by operation",
	}, []string{"operation"})

	// QueryLatency records aggregation query latency by operation.
	QueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moments_query_latency_seconds",
		Help:    "Aggregation query latency in seconds",
		Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
	}, []string{"operation"})

	// StoreWrites counts store write commands by kind and outcome.
	StoreWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_store_writes_total",
		Help: "Total store write commands by kind and outcome",
	}, []string{"kind", "outcome"})

	// SnapshotVersion is the version of the snapshot currently served.
	SnapshotVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moments_snapshot_version",
		Help: "Version of the in-memory snapshot currently served",
	})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moments_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheRequests counts cache lookups by cache name and result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_cache_requests_total",
		Help: "Total cache lookups by cache and result (hit, miss, error)",
	}, []string{"cache", "result"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moments_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// FeedItemsPublished counts feed items pushed to the live channel.
	FeedItemsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moments_feed_items_published_total",
		Help: "Total feed items published to the live feed by type",
	}, []string{"type"})
)

// TrackQuery returns a function that records an aggregation query when called (e.g. defer).
func TrackQuery(operation string) func() {
	start := time.Now()
	QueryTotal.WithLabelValues(operation).Inc()
	return func() {
		QueryLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// TrackDatabaseQuery returns a function that records database latency when called.
func TrackDatabaseQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
