// Package config holds the export run configuration. A Config is assembled
// once from defaults, an optional YAML file, the environment and the command
// line, then validated and passed explicitly to every component.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Sternrassler/storefront-export/pkg/cache"
	"github.com/Sternrassler/storefront-export/pkg/client"
	"github.com/Sternrassler/storefront-export/pkg/csvexport"
)

// Scope selects the export mode without prompting. Empty means ask.
type Scope string

const (
	ScopeAsk         Scope = ""
	ScopeAll         Scope = "all"
	ScopeCollections Scope = "collections"
)

// Config is the configuration of one export run.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	Store        string        `yaml:"-"`
	ProductLimit int           `yaml:"product_limit"`
	PageLimit    int           `yaml:"page_limit"`
	RequestDelay time.Duration `yaml:"request_delay"`
	OutputBase   string        `yaml:"output_base"`
	OutputDir    string        `yaml:"output_dir"`

	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	RedisAddr   string        `yaml:"redis_addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	MetricsAddr string        `yaml:"metrics_addr"`

	Log LogConfig `yaml:"log"`

	Scope       Scope    `yaml:"scope"`
	Collections []string `yaml:"collections"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		ProductLimit: 25,
		PageLimit:    2,
		RequestDelay: 2 * time.Second,
		OutputDir:    ".",
		UserAgent:    client.DefaultUserAgent,
		Timeout:      30 * time.Second,
		CacheTTL:     cache.DefaultTTL,
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

var storePattern = regexp.MustCompile(`(?:https?://)?(?:www\.)?([^.]+)`)

// StoreSlug returns the store name used in output file names: the first host
// label of baseURL without scheme or "www.".
func StoreSlug(baseURL string) string {
	m := storePattern.FindStringSubmatch(baseURL)
	if m == nil {
		return ""
	}
	return m[1]
}

// Finalize fills the derived fields. A base URL without a scheme gets https.
// Call it after every source has been applied.
func (c *Config) Finalize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL != "" && !strings.Contains(c.BaseURL, "://") {
		c.BaseURL = "https://" + c.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	c.Store = StoreSlug(c.BaseURL)
	if c.OutputBase == "" {
		c.OutputBase = "shopify_products_export_" + c.Store
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
}

// OutputPath is the catalog export file.
func (c Config) OutputPath() string {
	return filepath.Join(c.OutputDir, csvexport.FileName(c.OutputBase))
}

// CollectionPath is the export file for the collection with handle.
func (c Config) CollectionPath(handle string) string {
	name := fmt.Sprintf("%s_collection_%s_products_export", c.Store, handle)
	return filepath.Join(c.OutputDir, csvexport.FileName(name))
}

// ClientConfig returns the HTTP client settings. The Redis client is attached by the caller.
func (c Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:   c.BaseURL,
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		CacheTTL:  c.CacheTTL,
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return u, nil
}
