package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTTL is the fallback TTL when a response carries no usable Expires header.
const DefaultTTL = 5 * time.Minute

// ResponseToEntry converts an HTTP response to a CacheEntry. The body is read
// and restored on resp so the caller can still consume it.
func ResponseToEntry(resp *http.Response, fallbackTTL time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &CacheEntry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		CachedAt:   time.Now(),
		Expires:    ParseExpires(resp.Header, fallbackTTL),
	}

	if lastModStr := resp.Header.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry, nil
}

// ParseExpires returns the expiry announced by the Expires header, or now plus
// fallbackTTL when the header is missing or unparsable. A past Expires yields now.
func ParseExpires(headers http.Header, fallbackTTL time.Duration) time.Time {
	if fallbackTTL <= 0 {
		fallbackTTL = DefaultTTL
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(fallbackTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(fallbackTTL)
	}

	if expires.Before(time.Now()) {
		return time.Now()
	}

	return expires
}

// ShouldMakeConditionalRequest reports whether a stale entry can be revalidated.
func ShouldMakeConditionalRequest(entry *CacheEntry) bool {
	if entry == nil {
		return false
	}
	return entry.CanRevalidate()
}

// AddConditionalHeaders adds If-None-Match (preferred) or If-Modified-Since to req.
func AddConditionalHeaders(req *http.Request, entry *CacheEntry) {
	if entry == nil || req == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
