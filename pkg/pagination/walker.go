package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_pages_fetched_total",
		Help: "Total listing pages fetched successfully by kind",
	}, []string{"kind"})

	pageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_page_failures_total",
		Help: "Total listing pages that failed and were skipped by kind",
	}, []string{"kind"})
)

// PageCount returns ceil(total / pageSize). Non-positive totals or page
// sizes yield 0.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// TotalPages returns min(PageCount(total, pageSize), pageLimit). A page limit
// of 0 walks no pages; negative limits count as 0.
func TotalPages(total, pageSize, pageLimit int) int {
	pages := PageCount(total, pageSize)
	if pageLimit < pages {
		pages = pageLimit
	}
	if pages < 0 {
		return 0
	}
	return pages
}

// Config holds walker configuration.
type Config struct {
	// Delay is the pause between consecutive page fetches.
	Delay time.Duration
}

// PageFunc fetches one 1-based page.
type PageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// Result is the outcome of a walk.
type Result[T any] struct {
	// Items holds the accumulated items of every successful page, in page order.
	Items []T

	// Fetched counts successful pages.
	Fetched int

	// Failed lists the page numbers that failed.
	Failed []int
}

// Walker fetches pages sequentially with a fixed delay between them.
type Walker struct {
	config Config
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewWalker creates a walker.
func NewWalker(config Config, logger zerolog.Logger) *Walker {
	if config.Delay < 0 {
		config.Delay = 0
	}
	return &Walker{
		config: config,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Walk fetches pages 1..totalPages of kind in order. Page failures are logged
// and skipped. The returned error is non-nil only when ctx ends the walk early;
// the partial result is still returned.
func Walk[T any](ctx context.Context, w *Walker, kind string, totalPages int, fetch PageFunc[T]) (Result[T], error) {
	var result Result[T]
	start := time.Now()

	for page := 1; page <= totalPages; page++ {
		if page > 1 && w.config.Delay > 0 {
			if err := w.sleep(ctx, w.config.Delay); err != nil {
				return result, err
			}
		}

		items, err := fetch(ctx, page)
		if err != nil {
			pageFailuresTotal.WithLabelValues(kind).Inc()
			result.Failed = append(result.Failed, page)
			w.logger.Warn().
				Err(err).
				Str("kind", kind).
				Int("page", page).
				Int("total_pages", totalPages).
				Msgf("Error fetching %s for page %d", kind, page)
			continue
		}

		pagesFetchedTotal.WithLabelValues(kind).Inc()
		result.Items = append(result.Items, items...)
		result.Fetched++

		w.logger.Info().
			Str("kind", kind).
			Int("page", page).
			Int("total_pages", totalPages).
			Int("items", len(items)).
			Msgf("Fetched %s page %d of %d", kind, page, totalPages)
	}

	w.logger.Debug().
		Str("kind", kind).
		Int("pages", result.Fetched).
		Int("failed", len(result.Failed)).
		Int("items", len(result.Items)).
		Dur("duration", time.Since(start)).
		Msg("Walk complete")

	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
