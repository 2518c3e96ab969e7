// Package cache stores GitHub page responses in Redis so later runs can
// revalidate them with conditional requests.
//
// GitHub answers a request carrying a matching If-None-Match with
// 304 Not Modified, and such responses do not count against the primary rate
// limit. A cached page therefore costs one cheap round trip instead of a full
// download.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 24*time.Hour)
//
//	key := cache.KeyFor(req)
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch and store
//	}
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
//
// # Metrics
//
//   - ghextract_cache_hits_total
//   - ghextract_cache_misses_total
//   - ghextract_cache_stored_bytes_total
//   - ghextract_cache_not_modified_total
//   - ghextract_cache_errors_total{operation}
package cache
