package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Memory manager metrics
	MemorySweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_sweeps_total",
			Help: "Total number of sweeps and full flushes run by the reaper",
		},
		[]string{"kind", "outcome"}, // kind: sweep, flush; outcome: ok, failed, skipped
	)

	MemorySweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memory_sweep_duration_seconds",
			Help:    "Duration of reaper sweeps in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	MemoryEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"category", "reason"}, // reason: age, capacity, flush, manual
	)

	MemoryTrackerPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memory_tracker_pruned_total",
			Help: "Total number of access tracker entries pruned without a cache eviction",
		},
	)

	MemoryCleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cleanup_failures_total",
			Help: "Total number of cleanup callback failures",
		},
		[]string{"callback"},
	)

	MemoryHeapFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "memory_heap_flushes_total",
			Help: "Total number of full flushes triggered by heap usage",
		},
	)

	MemoryHeapBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_heap_bytes",
			Help: "Last heap usage reading taken by the reaper",
		},
	)

	MemoryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_hits_total",
			Help: "Total number of keyed cache hits",
		},
		[]string{"category"},
	)

	MemoryCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_cache_misses_total",
			Help: "Total number of keyed cache misses",
		},
		[]string{"category"},
	)

	MemoryEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "memory_entries",
			Help: "Current number of resident entries per category",
		},
		[]string{"category"},
	)

	MemoryTrackedKeys = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_tracked_keys",
			Help: "Current number of keys in the access tracker",
		},
	)

	MemoryCleanupCallbacks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "memory_cleanup_callbacks",
			Help: "Current number of registered cleanup callbacks",
		},
	)

	// List pager metrics
	ListPageRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "list_page_requests_total",
			Help: "Total number of list page requests",
		},
		[]string{"result"}, // result: hit, miss
	)

	// Analytics metrics
	AnalyticsEventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Total number of analytics events accepted",
		},
		[]string{"category"},
	)

	AnalyticsEventsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_flushed_total",
			Help: "Total number of analytics events written to the store",
		},
	)

	AnalyticsEventsRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_requeued_total",
			Help: "Total number of analytics events put back on the queue after a failed flush",
		},
	)

	AnalyticsEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_events_dropped_total",
			Help: "Total number of analytics events dropped by queue trimming",
		},
	)

	AnalyticsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "analytics_queue_depth",
			Help: "Number of analytics events waiting to be flushed",
		},
	)

	AnalyticsStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_store_duration_seconds",
			Help:    "Duration of analytics store operations",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	AnalyticsStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_store_errors_total",
			Help: "Total number of analytics store errors",
		},
		[]string{"operation"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"component"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Total number of circuit breaker trips",
		},
		[]string{"component"},
	)

	// API response cache metrics
	APICacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_hits_total",
			Help: "Total number of API cache hits",
		},
		[]string{"endpoint"},
	)

	APICacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_cache_misses_total",
			Help: "Total number of API cache misses",
		},
		[]string{"endpoint"},
	)

	APICacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_cache_size_bytes",
			Help: "Current size of API cache in bytes",
		},
	)

	APICacheItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_cache_items",
			Help: "Current number of items in API cache",
		},
	)

	// API request metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"endpoint", "method", "status"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Metrics collection error tracking
	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"collector"}, // collector: memory, analytics, api_cache
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	WebSocketMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent to clients",
		},
	)
)
