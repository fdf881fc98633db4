// Package cache stores storefront JSON responses in Redis so repeated exports
// of the same store avoid refetching unchanged pages.
//
// Entries are keyed by store host, request path and query. A fresh entry is
// served without contacting the storefront. A stale entry is kept in Redis for
// a retention window so its ETag or Last-Modified value can be replayed as a
// conditional request; a 304 answer refreshes the entry and serves the cached
// body.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Host:  "example.myshopify.com",
//		Path:  "/products.json",
//		Query: url.Values{"limit": {"25"}, "page": {"1"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the storefront, then:
//		entry, _ = cache.ResponseToEntry(resp, cache.DefaultTTL)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - storefront_cache_hits_total{layer="redis"}
//   - storefront_cache_misses_total
//   - storefront_conditional_requests_total
//   - storefront_304_responses_total
//   - storefront_cache_errors_total{operation}
package cache
