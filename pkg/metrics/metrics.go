// Package metrics exposes the Prometheus registry used by the exporter.
// Metrics are defined in their respective packages (client, cache, ratelimit,
// pagination, csvexport) and registered via promauto on the default registerer.
//
// This package serves them over HTTP while an export run is active.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server serves /metrics for the lifetime of one run.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger zerolog.Logger
}

// Listen binds addr and starts serving the default gatherer in the background.
// Use "127.0.0.1:0" to pick a free port; Addr reports the bound address.
func Listen(addr string, logger zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))

	s := &Server{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logger,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("Serving metrics")
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close shuts the server down, waiting up to five seconds for in-flight scrapes.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - storefront_requests_total{endpoint, status} (Counter)
//   - storefront_request_duration_seconds{endpoint} (Histogram)
//   - storefront_errors_total{class} (Counter)
//
// Cache Metrics (pkg/cache):
//   - storefront_cache_hits_total{layer="redis"} (Counter)
//   - storefront_cache_misses_total (Counter)
//   - storefront_conditional_requests_total (Counter)
//   - storefront_304_responses_total (Counter)
//   - storefront_cache_errors_total{operation} (Counter)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - storefront_rate_limit_cooldowns_total (Counter)
//   - storefront_rate_limit_wait_seconds (Histogram)
//
// Pagination Metrics (pkg/pagination):
//   - storefront_pages_fetched_total{kind} (Counter)
//   - storefront_page_failures_total{kind} (Counter)
//
// Export Metrics (pkg/csvexport):
//   - export_rows_written_total (Counter)
//   - export_files_written_total (Counter)
