package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/storefront-export/pkg/logging"
)

// ErrMissingBaseURL is returned when no storefront URL was given.
var ErrMissingBaseURL = errors.New("please provide a base URL")

// MaxProductLimit is the largest page size the storefront accepts.
const MaxProductLimit = 250

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid setting of a Config.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate returns ErrMissingBaseURL when the base URL is empty, otherwise
// ValidationErrors listing every invalid field, or nil.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}

	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, err := parseBaseURL(c.BaseURL); err != nil {
		add("base_url", "invalid url %q: %v", c.BaseURL, err)
	}
	if c.ProductLimit < 1 || c.ProductLimit > MaxProductLimit {
		add("product_limit", "must be between 1 and %d, got %d", MaxProductLimit, c.ProductLimit)
	}
	if c.PageLimit < 0 {
		add("page_limit", "must not be negative, got %d", c.PageLimit)
	}
	if c.RequestDelay < 0 {
		add("request_delay", "must not be negative, got %s", c.RequestDelay)
	}
	if c.Timeout <= 0 {
		add("timeout", "must be positive, got %s", c.Timeout)
	}
	if c.CacheTTL < 0 {
		add("cache_ttl", "must not be negative, got %s", c.CacheTTL)
	}
	if err := logging.ValidateLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	switch c.Scope {
	case ScopeAsk, ScopeAll, ScopeCollections:
	default:
		add("scope", "must be %q or %q, got %q", ScopeAll, ScopeCollections, c.Scope)
	}
	if len(c.Collections) > 0 && c.Scope == ScopeAll {
		add("collections", "cannot be combined with scope %q", ScopeAll)
	}
	if strings.TrimSpace(c.OutputBase) == "" {
		add("output_base", "must not be empty")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
