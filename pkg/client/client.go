// Package client provides the storefront HTTP client: plain GETs against the
// public JSON endpoints with optional Redis response caching and a shared
// rate-limit cool-down. Failed requests are reported, never retried.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/storefront-export/pkg/cache"
	"github.com/Sternrassler/storefront-export/pkg/logging"
	"github.com/Sternrassler/storefront-export/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for storefront requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_requests_total",
		Help: "Total storefront requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_request_duration_seconds",
		Help:    "Storefront request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_errors_total",
		Help: "Total storefront request errors by class",
	}, []string{"class"})
)

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "storefront-export/1.0"

// Client performs GET requests against one storefront.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the storefront, e.g. "https://example.myshopify.com"
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per request
	Timeout time.Duration

	// Redis enables the response cache and shares the rate-limit cool-down. Optional.
	Redis *redis.Client

	// CacheTTL is used for responses without an Expires header
	CacheTTL time.Duration
}

// DefaultConfig returns the default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
		CacheTTL:  cache.DefaultTTL,
	}
}

// New creates a new storefront client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must use http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("storefront-client")

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, logger),
		config:      cfg,
		logger:      logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// URL returns the absolute URL for path and query on this storefront.
// path is taken as already escaped.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	u.RawPath = c.baseURL.EscapedPath() + path
	if unescaped, err := url.PathUnescape(u.RawPath); err == nil {
		u.Path = unescaped
	} else {
		u.Path = c.baseURL.Path + path
		u.RawPath = ""
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// Get fetches path with query and returns the response body of a 2xx answer.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.Do(req)
}

// Do executes req with the rate-limit gate and the response cache applied.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)
	rawURL := req.URL.String()

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &StorefrontError{ErrorClass: ErrorClassNetwork, URL: rawURL, Message: "rate limit wait", Err: err}
	}

	cacheKey := cache.KeyForURL(req.URL)
	cachedEntry := c.lookupCache(ctx, cacheKey)
	if cachedEntry != nil && !cachedEntry.IsExpired() {
		c.logger.Debug().Str("url", rawURL).Msg("Serving response from cache")
		requestsTotal.WithLabelValues(endpoint, "cache").Inc()
		return cachedEntry.Data, nil
	}
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().Str("url", rawURL).Str("etag", cachedEntry.ETag).Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", rawURL).Msg("Executing storefront request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &StorefrontError{ErrorClass: ErrorClassNetwork, URL: rawURL, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if err := c.rateLimiter.RecordResponse(ctx, resp.StatusCode, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record rate limit state")
	}

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.NotModifiedResponses.Inc()
		newExpires := cache.ParseExpires(resp.Header, c.config.CacheTTL)
		if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		c.logger.Debug().Str("url", rawURL).Msg("304 Not Modified - using cache")
		return cachedEntry.Data, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		if errClass == "" {
			errClass = ErrorClassClient
		}
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, &StorefrontError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			URL:        rawURL,
			Message:    resp.Status,
		}
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &StorefrontError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, URL: rawURL, Message: "read body", Err: err}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("url", rawURL).Msg("Failed to cache response")
		}
		return entry.Data, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &StorefrontError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, URL: rawURL, Message: "read body", Err: err}
	}

	c.logger.Debug().Str("url", rawURL).Int("bytes", len(body)).Msg("Storefront request complete")
	return body, nil
}

// lookupCache returns the cached entry for key, or nil when caching is off,
// the key is missing, or Redis fails.
func (c *Client) lookupCache(ctx context.Context, key cache.CacheKey) *cache.CacheEntry {
	if c.cache == nil {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
		return nil
	}
	return entry
}

// Close releases the client's idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var collectionPath = regexp.MustCompile(`^/collections/[^/]+/`)

// endpointLabel collapses collection handles so metric cardinality stays bounded.
func endpointLabel(path string) string {
	return collectionPath.ReplaceAllString(path, "/collections/{handle}/")
}
