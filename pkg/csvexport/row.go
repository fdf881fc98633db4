// Package csvexport flattens storefront products into per-variant rows and
// streams them to CSV files in the bulk-import column layout.
package csvexport

// Row is one CSV record: named columns in insertion order.
type Row struct {
	columns []string
	values  map[string]string
}

// NewRow returns an empty row.
func NewRow() *Row {
	return &Row{values: make(map[string]string)}
}

// Set assigns value to column, appending the column on first use.
func (r *Row) Set(column, value string) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value of column, or "" when the row does not have it.
func (r *Row) Get(column string) string {
	return r.values[column]
}

// Columns returns the column names in insertion order.
func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Project returns the row's values for header, "" for columns it lacks.
func (r *Row) Project(header []string) []string {
	record := make([]string, len(header))
	for i, column := range header {
		record[i] = r.values[column]
	}
	return record
}
