package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks fresh cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_hits_total",
			Help: "Total number of storefront response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cache_misses_total",
			Help: "Total number of storefront response cache misses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_conditional_requests_total",
			Help: "Total number of conditional requests sent to the storefront",
		},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
