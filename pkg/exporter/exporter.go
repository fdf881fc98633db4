// Package exporter runs one export: it fetches the storefront meta data, asks
// for the scope, walks the catalog or the selected collections and writes the
// CSV files.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/storefront-export/pkg/client"
	"github.com/Sternrassler/storefront-export/pkg/config"
	"github.com/Sternrassler/storefront-export/pkg/csvexport"
	"github.com/Sternrassler/storefront-export/pkg/logging"
	"github.com/Sternrassler/storefront-export/pkg/pagination"
	"github.com/Sternrassler/storefront-export/pkg/prompt"
	"github.com/Sternrassler/storefront-export/pkg/storefront"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Catalog is the storefront API used by an export. *storefront.API implements it.
type Catalog interface {
	Meta(ctx context.Context) (*storefront.Meta, error)
	ProductsPage(ctx context.Context, limit, page int) ([]storefront.Product, error)
	CollectionsPage(ctx context.Context, page int) ([]storefront.Collection, error)
	CollectionProducts(ctx context.Context, handle string, limit int) ([]storefront.Product, error)
}

// ErrMetaFetch is returned when the storefront meta data cannot be fetched.
var ErrMetaFetch = errors.New("error fetching meta data")

// FileResult describes one output file, or one collection whose export failed.
type FileResult struct {
	Path       string
	Collection string
	Products   int
	Rows       int
	Err        error
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	Scope        prompt.Scope
	Files        []FileResult
	PagesFetched int
	PagesFailed  []int
	Duration     time.Duration
}

// Failed returns the results that did not produce a file.
func (s *Summary) Failed() []FileResult {
	var failed []FileResult
	for _, f := range s.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Exporter runs exports against one storefront.
type Exporter struct {
	cfg      config.Config
	catalog  Catalog
	prompter prompt.Prompter
	walker   *pagination.Walker
	logger   zerolog.Logger
	runID    string
}

// New creates an exporter. cfg must be finalized and valid.
func New(cfg config.Config, catalog Catalog, prompter prompt.Prompter) *Exporter {
	runID := uuid.NewString()
	logger := logging.NewLogger("exporter").With().Str("run_id", runID).Logger()

	return &Exporter{
		cfg:      cfg,
		catalog:  catalog,
		prompter: prompter,
		walker:   pagination.NewWalker(pagination.Config{Delay: cfg.RequestDelay}, logger),
		logger:   logger,
		runID:    runID,
	}
}

// RunID identifies this exporter's run in logs and the summary.
func (e *Exporter) RunID() string {
	return e.runID
}

// Run performs the export. It returns an error only for fatal conditions:
// the meta fetch failing, the prompt failing, or the catalog file not being
// written. Page and collection failures are logged and recorded in the summary.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: e.runID}

	e.logger.Info().
		Str("base_url", e.cfg.BaseURL).
		Str("store", e.cfg.Store).
		Msg("Starting export")

	meta, err := e.catalog.Meta(ctx)
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("error_class", errorClass(err)).
			Msg("Error fetching meta data. Exiting.")
		return nil, fmt.Errorf("%w: %v", ErrMetaFetch, err)
	}

	e.logger.Info().
		Int("products", meta.PublishedProductsCount).
		Int("collections", meta.PublishedCollectionsCount).
		Msg("Fetched storefront meta data")

	scope, err := e.prompter.ChooseScope()
	if err != nil {
		return nil, fmt.Errorf("choose export scope: %w", err)
	}
	summary.Scope = scope
	e.logger.Info().Str("scope", string(scope)).Msg("Export scope selected")

	switch scope {
	case prompt.ScopeAllProducts:
		err = e.exportCatalog(ctx, meta.PublishedProductsCount, summary)
	case prompt.ScopeCollections:
		err = e.exportCollections(ctx, meta.PublishedCollectionsCount, summary)
	default:
		err = fmt.Errorf("unknown export scope %q", scope)
	}

	summary.Duration = time.Since(start)
	if err != nil {
		return summary, err
	}

	e.logger.Info().
		Int("files", len(summary.Files)-len(summary.Failed())).
		Int("failed", len(summary.Failed())).
		Dur("duration", summary.Duration).
		Msg("Export complete")

	return summary, nil
}

func (e *Exporter) exportCatalog(ctx context.Context, totalProducts int, summary *Summary) error {
	if totalProducts <= 0 {
		e.logger.Info().Msg("No products found.")
		return nil
	}

	totalPages := pagination.TotalPages(totalProducts, e.cfg.ProductLimit, e.cfg.PageLimit)
	result, err := pagination.Walk(ctx, e.walker, "products", totalPages,
		func(ctx context.Context, page int) ([]storefront.Product, error) {
			return e.catalog.ProductsPage(ctx, e.cfg.ProductLimit, page)
		})
	summary.PagesFetched += result.Fetched
	summary.PagesFailed = append(summary.PagesFailed, result.Failed...)
	if err != nil {
		return err
	}

	path := e.cfg.OutputPath()
	rows, err := csvexport.WriteFile(path, result.Items)
	summary.Files = append(summary.Files, FileResult{
		Path:     path,
		Products: len(result.Items),
		Rows:     rows,
		Err:      err,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("file", path).Msg("Failed to write export file")
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (e *Exporter) exportCollections(ctx context.Context, totalCollections int, summary *Summary) error {
	totalPages := pagination.PageCount(totalCollections, storefront.CollectionsPageSize)
	result, err := pagination.Walk(ctx, e.walker, "collections", totalPages,
		func(ctx context.Context, page int) ([]storefront.Collection, error) {
			return e.catalog.CollectionsPage(ctx, page)
		})
	summary.PagesFetched += result.Fetched
	summary.PagesFailed = append(summary.PagesFailed, result.Failed...)
	if err != nil {
		return err
	}

	handles, err := e.prompter.ChooseCollections(result.Items)
	if err != nil {
		var unknown *prompt.UnknownCollectionsError
		if !errors.As(err, &unknown) {
			return fmt.Errorf("choose collections: %w", err)
		}
		e.logger.Warn().Strs("collections", unknown.Handles).Msg("Skipping unknown collections")
	}
	e.logger.Info().Strs("collections", handles).Msg("Collections selected")

	for _, handle := range handles {
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Files = append(summary.Files, e.exportCollection(ctx, handle))
	}
	return nil
}

// exportCollection fetches one collection's products and writes its file.
// Failures are logged and returned in the result.
func (e *Exporter) exportCollection(ctx context.Context, handle string) FileResult {
	path := e.cfg.CollectionPath(handle)
	res := FileResult{Path: path, Collection: handle}

	products, err := e.catalog.CollectionProducts(ctx, handle, e.cfg.ProductLimit)
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("collection", handle).
			Str("error_class", errorClass(err)).
			Msgf("Error fetching products from collection %s", handle)
		res.Err = err
		return res
	}
	res.Products = len(products)

	rows, err := csvexport.WriteFile(path, products)
	res.Rows = rows
	if err != nil {
		e.logger.Warn().Err(err).Str("collection", handle).Str("file", path).Msg("Failed to write collection export")
		res.Err = err
	}
	return res
}

func errorClass(err error) string {
	if errors.Is(err, storefront.ErrDecode) {
		return "decode"
	}
	return string(client.ClassOf(err))
}
