// Package ratelimit keeps the exporter from hammering a storefront that has
// started answering 429 Too Many Requests. A throttled response opens a
// cool-down window (from Retry-After); every later request waits it out first.
// The throttled request itself is not retried.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RedisKeyCooldownUntil holds the cool-down deadline as Unix milliseconds.
const RedisKeyCooldownUntil = "storefront:rate_limit:cooldown_until"

const (
	// DefaultCooldown applies when a throttled response has no usable Retry-After.
	DefaultCooldown = 2 * time.Second

	// MaxCooldown caps the Retry-After value a storefront can impose.
	MaxCooldown = 60 * time.Second
)

// State is the current cool-down state shared by all requests of a run.
type State struct {
	// CooldownUntil is when requests may resume. Zero means no cool-down.
	CooldownUntil time.Time `json:"cooldown_until"`
}

// Active reports whether a cool-down is in effect.
func (s *State) Active() bool {
	return s.Remaining() > 0
}

// Remaining returns the time left in the cool-down window, or 0.
func (s *State) Remaining() time.Duration {
	if s.CooldownUntil.IsZero() {
		return 0
	}
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// IsThrottled reports whether a status code signals upstream throttling.
// 430 is the storefront's security rejection, served under the same conditions as 429.
func IsThrottled(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode == 430
}

// ParseRetryAfter reads the Retry-After header as seconds (fractions allowed)
// or an HTTP date. Missing or invalid values yield DefaultCooldown; results
// are capped at MaxCooldown.
func ParseRetryAfter(headers http.Header) time.Duration {
	value := strings.TrimSpace(headers.Get("Retry-After"))
	if value == "" {
		return DefaultCooldown
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if at, err := http.ParseTime(value); err == nil {
		d = time.Until(at)
	} else {
		return DefaultCooldown
	}

	if d <= 0 {
		return DefaultCooldown
	}
	if d > MaxCooldown {
		return MaxCooldown
	}
	return d
}
