package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sternrassler/storefront-export/pkg/logging"
	"github.com/Sternrassler/storefront-export/pkg/storefront"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_rows_written_total",
		Help: "Total CSV rows written",
	})

	filesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "export_files_written_total",
		Help: "Total CSV files completed",
	})
)

// Writer streams rows as CSV. The header is taken from the first row written;
// later rows are projected onto it.
type Writer struct {
	csv    *csv.Writer
	header []string
	rows   int
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Write writes row, preceded by the header if this is the first row.
func (w *Writer) Write(row *Row) error {
	if w.header == nil {
		w.header = row.Columns()
		if err := w.csv.Write(w.header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if err := w.csv.Write(row.Project(w.header)); err != nil {
		return fmt.Errorf("write row %d: %w", w.rows+1, err)
	}
	w.rows++
	rowsWrittenTotal.Inc()
	return nil
}

// WriteProduct writes every row of product.
func (w *Writer) WriteProduct(product storefront.Product) error {
	for _, row := range MapProduct(product) {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("product %s: %w", product.Handle, err)
		}
	}
	return nil
}

// Flush flushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// Header returns the header written so far, nil before the first row.
func (w *Writer) Header() []string {
	return append([]string(nil), w.header...)
}

// Rows returns the number of data rows written.
func (w *Writer) Rows() int {
	return w.rows
}

// FileName returns base with at most one trailing ".csv" removed and ".csv" appended.
func FileName(base string) string {
	return strings.TrimSuffix(base, ".csv") + ".csv"
}

// WriteFile creates or truncates path and writes every product's rows to it.
// With no products the file is created empty. It returns the number of rows written.
func WriteFile(path string, products []storefront.Product) (int, error) {
	logger := logging.NewLogger("csv-writer")

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	w := NewWriter(f)
	for _, product := range products {
		if err := w.WriteProduct(product); err != nil {
			f.Close()
			return w.Rows(), err
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return w.Rows(), fmt.Errorf("flush %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return w.Rows(), fmt.Errorf("close %s: %w", path, err)
	}

	filesWrittenTotal.Inc()
	logger.Info().
		Str("file", path).
		Int("products", len(products)).
		Int("rows", w.Rows()).
		Msgf("CSV generation complete for %s", path)

	return w.Rows(), nil
}
