package dataset

import (
	"errors"
	"strings"
)

// Row maps a column name to a scalar cell value. Values are float64, bool,
// string, time.Time or nil; a missing key is treated as nil.
type Row map[string]any

// Dataset is the normalized in-memory form of one uploaded file.
// It is never mutated after New returns.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New builds a dataset from a header and its rows. Rows where every value is
// empty are dropped first; if none survive, the dataset has no columns.
func New(name string, header []string, rows []Row) (*Dataset, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("dataset name cannot be empty")
	}
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !IsBlankRow(r) {
			kept = append(kept, r)
		}
	}
	var cols []string
	if len(kept) > 0 {
		cols = make([]string, len(header))
		copy(cols, header)
	}
	return &Dataset{Name: name, Columns: cols, Rows: kept}, nil
}

// Shape returns (row count, column count).
func (d *Dataset) Shape() [2]int {
	if d == nil {
		return [2]int{}
	}
	return [2]int{len(d.Rows), len(d.Columns)}
}

// Values returns the column's cell values in row order, nil for absent cells.
func (d *Dataset) Values(column string) []any {
	out := make([]any, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[column]
	}
	return out
}

// Head returns up to n rows from the start of the dataset.
func (d *Dataset) Head(n int) []Row {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	if n < 0 {
		n = 0
	}
	return d.Rows[:n]
}

// IsBlankRow reports whether every value in r is nil or an empty string.
func IsBlankRow(r Row) bool {
	for _, v := range r {
		if !IsEmpty(v) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether v is nil or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	return false
}
