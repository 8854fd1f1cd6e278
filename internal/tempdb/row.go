package tempdb

import (
	"fmt"
	"slices"
	"strings"
)

// Row is one result row: values paired with the cursor's column names, in
// order.
type Row struct {
	cols []string
	vals []any
}

// Columns returns the column names.
func (r Row) Columns() []string { return slices.Clone(r.cols) }

// Values returns the values in column order.
func (r Row) Values() []any { return slices.Clone(r.vals) }

func (r Row) Len() int { return len(r.vals) }

// At returns the i-th value.
func (r Row) At(i int) any { return r.vals[i] }

// Get returns the value of the first column called name.
func (r Row) Get(name string) (any, bool) {
	i := slices.Index(r.cols, name)
	if i < 0 {
		return nil, false
	}
	return r.vals[i], true
}

// Map returns the row keyed by column name; later duplicates win.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.cols))
	for i, c := range r.cols {
		m[c] = r.vals[i]
	}
	return m
}

func (r Row) String() string {
	parts := make([]string, len(r.vals))
	for i, v := range r.vals {
		parts[i] = fmt.Sprintf("%s=%v", r.cols[i], v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
