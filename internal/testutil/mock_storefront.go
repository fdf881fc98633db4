// Package testutil provides a mock storefront server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockResponse defines a canned response for one request path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockStorefront serves /meta.json, /products.json, /collections.json and
// /collections/{handle}/products.json from in-memory fixtures.
type MockStorefront struct {
	server *httptest.Server

	mu          sync.RWMutex
	meta        map[string]int
	products    []map[string]any
	collections []map[string]any
	byHandle    map[string][]map[string]any
	failures    map[string]MockResponse // keyed by path + "?" + raw query, or path alone

	requests []string
}

// NewMockStorefront creates and starts a mock storefront.
func NewMockStorefront() *MockStorefront {
	m := &MockStorefront{
		meta:     map[string]int{},
		byHandle: map[string][]map[string]any{},
		failures: map[string]MockResponse{},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockStorefront) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockStorefront) Close() {
	m.server.Close()
}

// SetMeta sets the counts returned by /meta.json.
func (m *MockStorefront) SetMeta(products, collections int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta = map[string]int{
		"published_products_count":    products,
		"published_collections_count": collections,
	}
}

// AddProducts appends products served by /products.json.
func (m *MockStorefront) AddProducts(products ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, products...)
}

// AddCollection registers a collection and the products it contains.
func (m *MockStorefront) AddCollection(handle, title string, products ...map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = append(m.collections, map[string]any{
		"handle":         handle,
		"title":          title,
		"products_count": len(products),
	})
	m.byHandle[handle] = products
}

// Fail makes requests to target answer with resp. target is either a path
// ("/meta.json") or a path with query ("/products.json?limit=2&page=2").
func (m *MockStorefront) Fail(target string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[target] = resp
}

// Requests returns the request URIs received so far, in order.
func (m *MockStorefront) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

func (m *MockStorefront) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.URL.RequestURI())
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if resp, ok := m.failures[r.URL.RequestURI()]; ok {
		writeMock(w, resp)
		return
	}
	if resp, ok := m.failures[r.URL.Path]; ok {
		writeMock(w, resp)
		return
	}

	limit := intParam(r, "limit", 30)
	page := intParam(r, "page", 1)

	path := r.URL.Path
	switch {
	case path == "/meta.json":
		writeJSON(w, m.meta)
	case path == "/products.json":
		writeJSON(w, map[string]any{"products": pageOf(m.products, limit, page)})
	case path == "/collections.json":
		writeJSON(w, map[string]any{"collections": pageOf(m.collections, limit, page)})
	case strings.HasPrefix(path, "/collections/") && strings.HasSuffix(path, "/products.json"):
		handle := strings.TrimSuffix(strings.TrimPrefix(path, "/collections/"), "/products.json")
		products, ok := m.byHandle[handle]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, map[string]any{"products": pageOf(products, limit, 1)})
	default:
		http.NotFound(w, r)
	}
}

func pageOf(items []map[string]any, limit, page int) []map[string]any {
	start := (page - 1) * limit
	if start >= len(items) || start < 0 {
		return []map[string]any{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func intParam(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func writeMock(w http.ResponseWriter, resp MockResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors": "Internal Server Error"}`,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors": "Exceeded rate limit"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"Retry-After":  retryAfter,
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not valid JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: `{"products": [`}
}

// Product builds a product fixture with the given handle and variant count.
// Variants get option1 = "V{i}" under a single "Title" option.
func Product(handle string, variants int) map[string]any {
	vs := make([]map[string]any, variants)
	for i := range vs {
		vs[i] = map[string]any{
			"sku":                fmt.Sprintf("%s-%d", handle, i+1),
			"grams":              100 * (i + 1),
			"inventory_quantity": i,
			"price":              "10.00",
			"compare_at_price":   nil,
			"requires_shipping":  true,
			"taxable":            true,
			"barcode":            "",
			"featured_image":     nil,
			"option1":            fmt.Sprintf("V%d", i+1),
		}
	}
	return map[string]any{
		"handle":       handle,
		"title":        "Product " + handle,
		"body_html":    "<p>" + handle + "</p>",
		"vendor":       "Acme",
		"product_type": "Widget",
		"tags":         []string{"a", "b"},
		"images":       []map[string]any{{"src": "https://cdn.test/" + handle + ".jpg", "alt": handle}},
		"options":      []map[string]any{{"name": "Title"}},
		"variants":     vs,
	}
}
