package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "STOREFRONT_EXPORT_"

// LoadFile applies the YAML file at path onto cfg. ${VAR} references are
// expanded from the environment first. Keys absent from the file keep their
// current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, cfg)
}

// Parse applies YAML data onto cfg, expanding ${VAR} references.
func Parse(data []byte, cfg *Config) error {
	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadEnv applies STOREFRONT_EXPORT_* variables onto cfg. Every malformed
// value is reported.
func LoadEnv(cfg *Config) error {
	var errs ValidationErrors

	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("not an integer: %q", v)})
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := lookup(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, ValidationError{Field: EnvPrefix + name, Message: fmt.Sprintf("not a duration: %q", v)})
				return
			}
			*dst = d
		}
	}

	str("BASE_URL", &cfg.BaseURL)
	integer("PRODUCT_LIMIT", &cfg.ProductLimit)
	integer("PAGE_LIMIT", &cfg.PageLimit)
	if v, ok := lookup("REQUEST_DELAY_MS"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvPrefix + "REQUEST_DELAY_MS", Message: fmt.Sprintf("not an integer: %q", v)})
		} else {
			cfg.RequestDelay = time.Duration(ms) * time.Millisecond
		}
	}
	str("OUTPUT_BASE", &cfg.OutputBase)
	str("OUTPUT_DIR", &cfg.OutputDir)
	str("USER_AGENT", &cfg.UserAgent)
	duration("TIMEOUT", &cfg.Timeout)
	str("REDIS_ADDR", &cfg.RedisAddr)
	duration("CACHE_TTL", &cfg.CacheTTL)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("LOG_LEVEL", &cfg.Log.Level)
	if v, ok := lookup("LOG_PRETTY"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, ValidationError{Field: EnvPrefix + "LOG_PRETTY", Message: fmt.Sprintf("not a boolean: %q", v)})
		} else {
			cfg.Log.Pretty = b
		}
	}
	if v, ok := lookup("SCOPE"); ok {
		cfg.Scope = Scope(v)
	}
	if v, ok := lookup("COLLECTIONS"); ok {
		cfg.Collections = SplitList(v)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}
