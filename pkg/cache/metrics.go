package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups that found a live entry.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghextract_cache_hits_total",
			Help: "Total number of page cache hits",
		},
	)

	// CacheMisses counts lookups without a live entry.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghextract_cache_misses_total",
			Help: "Total number of page cache misses",
		},
	)

	// StoredBytes counts bytes written to Redis.
	StoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghextract_cache_stored_bytes_total",
			Help: "Total bytes of page responses written to the cache",
		},
	)

	// ConditionalRequestsSent counts requests revalidating a cached page.
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghextract_cache_conditional_requests_total",
			Help: "Total number of requests sent with If-None-Match or If-Modified-Since",
		},
	)

	// NotModified counts conditional requests answered with 304.
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghextract_cache_not_modified_total",
			Help: "Total number of 304 Not Modified responses served from cache",
		},
	)

	// CacheErrors counts failed cache operations.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghextract_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
