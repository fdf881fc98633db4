package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client and skips when none is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		errorMsg string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("https://example.myshopify.com"),
		},
		{
			name:     "missing base url",
			config:   Config{UserAgent: "test"},
			errorMsg: "base url is required",
		},
		{
			name:     "unsupported scheme",
			config:   Config{BaseURL: "ftp://example.com", UserAgent: "test"},
			errorMsg: `base url must use http or https (got "ftp://example.com")`,
		},
		{
			name:     "empty user agent",
			config:   Config{BaseURL: "https://example.com"},
			errorMsg: "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.errorMsg != "" {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if client.cache != nil {
				t.Error("cache should be disabled without Redis")
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("https://shop.test")

	if cfg.BaseURL != "https://shop.test" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, DefaultUserAgent)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Redis != nil {
		t.Error("Redis should be nil by default")
	}
}

func TestClient_URL(t *testing.T) {
	tests := []struct {
		base  string
		path  string
		query url.Values
		want  string
	}{
		{"https://shop.test", "/meta.json", nil, "https://shop.test/meta.json"},
		{"https://shop.test/", "/products.json", url.Values{"limit": {"25"}, "page": {"2"}}, "https://shop.test/products.json?limit=25&page=2"},
		{"https://shop.test/en", "/collections.json", url.Values{"page": {"1"}, "limit": {"250"}}, "https://shop.test/en/collections.json?limit=250&page=1"},
		{"https://shop.test", "/collections/a%20b/products.json", url.Values{"limit": {"5"}}, "https://shop.test/collections/a%20b/products.json?limit=5"},
	}

	for _, tt := range tests {
		c, err := New(DefaultConfig(tt.base))
		if err != nil {
			t.Fatalf("New(%q) error = %v", tt.base, err)
		}
		if got := c.URL(tt.path, tt.query); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestGet_Success(t *testing.T) {
	var userAgent, accept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
		if r.URL.Path != "/products.json" || r.URL.Query().Get("page") != "1" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.UserAgent = "ExportTest/1.0"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body, err := c.Get(context.Background(), "/products.json", url.Values{"limit": {"25"}, "page": {"1"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"products":[]}` {
		t.Errorf("body = %s", body)
	}
	if userAgent != "ExportTest/1.0" {
		t.Errorf("User-Agent = %q", userAgent)
	}
	if accept != "application/json" {
		t.Errorf("Accept = %q", accept)
	}
}

func TestGet_RedisDownDoesNotFailRequests(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	cfg := DefaultConfig(server.URL)
	cfg.Redis = rdb
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		body, err := c.Get(context.Background(), "/products.json", nil)
		if err != nil {
			t.Fatalf("Get() #%d error = %v, want the request served without Redis", i+1, err)
		}
		if string(body) != `{"products":[]}` {
			t.Errorf("body = %s", body)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("storefront hits = %d, want 2", got)
	}
}

func TestGet_StatusErrors(t *testing.T) {
	tests := []struct {
		status int
		class  ErrorClass
	}{
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusBadGateway, ErrorClassServer},
		{http.StatusMovedPermanently, ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				if tt.status == http.StatusMovedPermanently {
					// no Location header, so the redirect is not followed
					w.WriteHeader(tt.status)
					return
				}
				http.Error(w, "boom", tt.status)
			}))
			defer server.Close()

			c, _ := New(DefaultConfig(server.URL))
			_, err := c.Get(context.Background(), "/products.json", nil)

			var sfErr *StorefrontError
			if !errors.As(err, &sfErr) {
				t.Fatalf("Get() error = %v, want *StorefrontError", err)
			}
			if sfErr.StatusCode != tt.status || sfErr.ErrorClass != tt.class {
				t.Errorf("got status %d class %q, want %d %q", sfErr.StatusCode, sfErr.ErrorClass, tt.status, tt.class)
			}
			if hits != 1 {
				t.Errorf("server hit %d times, failed requests must not be retried", hits)
			}
		})
	}
}

func TestGet_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	c, _ := New(DefaultConfig(base))
	_, err := c.Get(context.Background(), "/meta.json", nil)

	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(err) = %q, want network (err = %v)", ClassOf(err), err)
	}
}

func TestGet_ThrottledResponseDelaysNextRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0.2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, _ := New(DefaultConfig(server.URL))
	ctx := context.Background()

	_, err := c.Get(ctx, "/products.json", nil)
	if ClassOf(err) != ErrorClassRateLimit {
		t.Fatalf("first Get() class = %q, want rate_limit", ClassOf(err))
	}
	if hits != 1 {
		t.Fatalf("throttled request must not be retried, hits = %d", hits)
	}

	start := time.Now()
	if _, err := c.Get(ctx, "/products.json", nil); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("second request ran after %v, want it to wait out the cool-down", elapsed)
	}
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/products.json":                         "/products.json",
		"/collections.json":                      "/collections.json",
		"/collections/summer-sale/products.json": "/collections/{handle}/products.json",
	}

	for in, want := range tests {
		if got := endpointLabel(in); got != want {
			t.Errorf("endpointLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGet_CacheServesFreshEntry(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.Write([]byte(`{"published_products_count":3}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		body, err := c.Get(context.Background(), "/meta.json", nil)
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
		if string(body) != `{"published_products_count":3}` {
			t.Errorf("Get() #%d body = %s", i, body)
		}
	}

	if hits != 1 {
		t.Errorf("server hit %d times, want 1 with a fresh cache entry", hits)
	}
}

func TestGet_CacheRevalidatesStaleEntry(t *testing.T) {
	redisClient := setupTestRedis(t)

	var hits, conditional int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			atomic.AddInt32(&conditional, 1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		// Already expired, so the next request must revalidate.
		w.Header().Set("Expires", time.Now().Add(-time.Minute).Format(http.TimeFormat))
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"collections":[]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig(server.URL)
	cfg.Redis = redisClient
	c, _ := New(cfg)
	ctx := context.Background()

	if _, err := c.Get(ctx, "/collections.json", nil); err != nil {
		t.Fatalf("first Get() error = %v", err)
	}
	body, err := c.Get(ctx, "/collections.json", nil)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}

	if string(body) != `{"collections":[]}` {
		t.Errorf("body = %s, want cached body", body)
	}
	if conditional != 1 {
		t.Errorf("conditional requests = %d, want 1", conditional)
	}
}
