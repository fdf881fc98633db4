package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/storefront-export/pkg/client"
	"github.com/Sternrassler/storefront-export/pkg/config"
	"github.com/Sternrassler/storefront-export/pkg/exporter"
	"github.com/Sternrassler/storefront-export/pkg/logging"
	"github.com/Sternrassler/storefront-export/pkg/metrics"
	"github.com/Sternrassler/storefront-export/pkg/prompt"
	"github.com/Sternrassler/storefront-export/pkg/storefront"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configFile string
	envFile    string

	logLevel    string
	logPretty   bool
	redisAddr   string
	metricsAddr string
	userAgent   string
	timeout     time.Duration
	cacheTTL    time.Duration
	outputDir   string

	all         bool
	collections []string

	// newPrompter is replaced in tests.
	newPrompter func() prompt.Prompter
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return newCommand(&options{
		newPrompter: func() prompt.Prompter { return prompt.NewSurvey() },
	})
}

func newCommand(opts *options) *cobra.Command {
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:     "storefront-export <baseUrl> [productLimit] [pageLimit] [requestDelayMs] [outputFileBaseName]",
		Short:   "Export a storefront's product catalog to CSV",
		Version: version,
		Long: `storefront-export reads a storefront's public JSON catalog and writes the
products as a per-variant CSV file in the bulk import layout. It exports
either the whole paginated catalog or a selection of collections, one file
per collection.`,
		Example: `  # Prompt for the scope, 25 products per page, 2 pages, 2s between pages
  storefront-export https://www.example-shop.com

  # 250 products per page, up to 40 pages, half a second between pages
  storefront-export https://www.example-shop.com 250 40 500 full_catalog

  # Non-interactive collection export
  storefront-export example-shop.com --collections summer,sale --output-dir exports`,
		Args:         cobra.MaximumNArgs(5),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "YAML config file")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with STOREFRONT_EXPORT_* variables (ignored when missing)")
	f.StringVar(&opts.logLevel, "log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	f.BoolVar(&opts.logPretty, "log-pretty", defaults.Log.Pretty, "human readable console logs instead of JSON")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the response cache and rate limit state (e.g. localhost:6379)")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
	f.StringVar(&opts.userAgent, "user-agent", defaults.UserAgent, "User-Agent header sent with every request")
	f.DurationVar(&opts.timeout, "timeout", defaults.Timeout, "per request timeout")
	f.DurationVar(&opts.cacheTTL, "cache-ttl", defaults.CacheTTL, "cache lifetime for responses without an Expires header")
	f.StringVar(&opts.outputDir, "output-dir", defaults.OutputDir, "directory the CSV files are written to")
	f.BoolVar(&opts.all, "all", false, "export all products without prompting")
	f.StringSliceVar(&opts.collections, "collections", nil, "export these collection handles without prompting")
	cmd.MarkFlagsMutuallyExclusive("all", "collections")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := loadConfig(cmd, args, opts)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.LogLevel(cfg.Log.Level)
	logCfg.Pretty = cfg.Log.Pretty
	logCfg.Output = cmd.ErrOrStderr()
	logging.Setup(logCfg)
	logger := logging.NewLogger("cli")

	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = connectRedis(ctx, cfg.RedisAddr, logger)
		if redisClient != nil {
			defer redisClient.Close()
		}
	}

	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr, logger)
		if err != nil {
			return fmt.Errorf("start metrics listener: %w", err)
		}
		defer srv.Close()
	}

	clientCfg := cfg.ClientConfig()
	clientCfg.Redis = redisClient
	sfClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create storefront client: %w", err)
	}
	defer sfClient.Close()

	exp := exporter.New(cfg, storefront.NewAPI(sfClient), prompterFor(cfg, opts))
	summary, err := exp.Run(ctx)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	return err
}

// loadConfig layers defaults, the YAML file, the environment, positional
// arguments and explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, args []string, opts *options) (config.Config, error) {
	cfg := config.Defaults()

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return cfg, err
	}
	if opts.configFile != "" {
		if err := config.LoadFile(opts.configFile, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := config.LoadEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := applyArgs(&cfg, args); err != nil {
		return cfg, err
	}
	applyFlags(cmd, &cfg, opts)

	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyArgs(cfg *config.Config, args []string) error {
	var errs config.ValidationErrors
	integer := func(i int, name string, dst *int) {
		if len(args) <= i {
			return
		}
		n, err := strconv.Atoi(args[i])
		if err != nil {
			errs = append(errs, config.ValidationError{Field: name, Message: fmt.Sprintf("not an integer: %q", args[i])})
			return
		}
		*dst = n
	}

	if len(args) > 0 {
		cfg.BaseURL = args[0]
	}
	integer(1, "productLimit", &cfg.ProductLimit)
	integer(2, "pageLimit", &cfg.PageLimit)

	delayMs := int(cfg.RequestDelay / time.Millisecond)
	integer(3, "requestDelayMs", &delayMs)
	cfg.RequestDelay = time.Duration(delayMs) * time.Millisecond

	if len(args) > 4 {
		cfg.OutputBase = args[4]
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config, opts *options) {
	changed := cmd.Flags().Changed

	if changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if changed("log-pretty") {
		cfg.Log.Pretty = opts.logPretty
	}
	if changed("redis-addr") {
		cfg.RedisAddr = opts.redisAddr
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if changed("user-agent") {
		cfg.UserAgent = opts.userAgent
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("cache-ttl") {
		cfg.CacheTTL = opts.cacheTTL
	}
	if changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if opts.all {
		cfg.Scope = config.ScopeAll
		cfg.Collections = nil
	}
	if changed("collections") {
		cfg.Scope = config.ScopeCollections
		cfg.Collections = opts.collections
	}
}

// prompterFor answers from the configuration when it fixes the scope and
// prompts on the terminal otherwise.
func prompterFor(cfg config.Config, opts *options) prompt.Prompter {
	switch {
	case cfg.Scope == config.ScopeAll:
		return prompt.Static{Scope: prompt.ScopeAllProducts}
	case cfg.Scope == config.ScopeCollections, len(cfg.Collections) > 0:
		return prompt.Static{Scope: prompt.ScopeCollections, Collections: cfg.Collections}
	default:
		return opts.newPrompter()
	}
}

// connectRedis returns a connected client, or nil when addr is unreachable.
// The export then runs without caching.
func connectRedis(ctx context.Context, addr string, logger zerolog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, running without cache")
		rdb.Close()
		return nil
	}

	logger.Info().Str("addr", addr).Msg("Connected to Redis")
	return rdb
}
