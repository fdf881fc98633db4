package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key the exporter writes to Redis.
const KeyPrefix = "storefront"

// CacheKey identifies one cached storefront response.
type CacheKey struct {
	// Host is the storefront host (e.g., "example.myshopify.com")
	Host string

	// Path is the request path (e.g., "/collections/sale/products.json")
	Path string

	// Query holds the query parameters (e.g., limit=25, page=2)
	Query url.Values
}

// String generates a deterministic cache key string.
//
// Example:
//
//	storefront:example.myshopify.com:products.json:limit=25:page=2
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if host := strings.ToLower(k.Host); host != "" {
		parts = append(parts, host)
	}

	if path := strings.Trim(k.Path, "/"); path != "" {
		parts = append(parts, path)
	}

	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, strings.Join(k.Query[name], ",")))
		}
	}

	return strings.Join(parts, ":")
}

// KeyForURL builds the cache key of a request URL.
func KeyForURL(u *url.URL) CacheKey {
	return CacheKey{
		Host:  u.Host,
		Path:  u.Path,
		Query: u.Query(),
	}
}
