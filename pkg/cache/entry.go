package cache

import (
	"time"
)

// CacheEntry represents a cached storefront response.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match)
	ETag string `json:"etag"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// LastModified from the Last-Modified header (If-Modified-Since)
	LastModified time.Time `json:"last_modified"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the cache entry is stale.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until the entry becomes stale, or 0 if it already is.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether the entry carries a validator for a conditional request.
func (e *CacheEntry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
