// Package dataset implements the in-memory tabular structure produced by
// ingestion and consumed by the rest of the survey pipeline.
//
// The dataset package is responsible for:
//   - Holding an ordered set of named columns and an ordered set of rows
//   - Duplicate detection and removal under a chosen comparison key
//   - Deterministic row keys for storage dedupe
//
// Design constraints:
//   - A Dataset is immutable once constructed; every operation that changes
//     shape returns a new Dataset.
//   - Every row has exactly the declared columns. A missing cell is the
//     empty string.
//   - Cell comparison is exact and case-sensitive; callers normalize before
//     comparing if they want looser semantics.
package dataset

import (
	"fmt"
)

// Dataset is a rectangular table of string cells.
//
// Fields are unexported so the "immutable once returned" contract cannot be
// broken by accident; accessors copy where the caller could otherwise alias
// internal state.
type Dataset struct {
	cols []string
	rows [][]string
}

// New builds a Dataset from a column list and row values.
//
// Errors:
//   - Returns an error if columns is empty, contains an empty name, or
//     contains a duplicate name.
//   - Returns an error if any row's width differs from len(columns).
//
// The input slices are copied; the caller may reuse them afterwards.
func New(columns []string, rows [][]string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset: no columns")
	}

	seen := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("dataset: empty column name at index %d", i)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column name %q", c)
		}
		seen[c] = struct{}{}
	}

	cols := append([]string(nil), columns...)
	out := make([][]string, 0, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("dataset: row %d has %d cells, want %d", i, len(r), len(cols))
		}
		out = append(out, append([]string(nil), r...))
	}

	return &Dataset{cols: cols, rows: out}, nil
}

// Columns returns a copy of the ordered column names.
func (d *Dataset) Columns() []string {
	return append([]string(nil), d.cols...)
}

// NumColumns returns the declared column count.
func (d *Dataset) NumColumns() int { return len(d.cols) }

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.rows) }

// Row returns a copy of row i. Panics if i is out of range, matching slice
// indexing semantics.
func (d *Dataset) Row(i int) []string {
	return append([]string(nil), d.rows[i]...)
}

// Cell returns the value at row i, named column. The second return reports
// whether the column exists.
func (d *Dataset) Cell(i int, column string) (string, bool) {
	ci := d.ColumnIndex(column)
	if ci < 0 {
		return "", false
	}
	return d.rows[i][ci], true
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.cols {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column is declared.
func (d *Dataset) HasColumn(name string) bool { return d.ColumnIndex(name) >= 0 }

// Column returns a copy of every value in the named column, in row order.
//
// Errors:
//   - Returns an error if the column is not declared.
func (d *Dataset) Column(name string) ([]string, error) {
	ci := d.ColumnIndex(name)
	if ci < 0 {
		return nil, fmt.Errorf("dataset: unknown column %q", name)
	}
	out := make([]string, len(d.rows))
	for i, r := range d.rows {
		out[i] = r[ci]
	}
	return out, nil
}

// columnIndices resolves an optional column subset to positions.
//
// A nil or empty subset means "all columns". Unknown names are an error so a
// typo cannot silently widen the comparison key to nothing.
func (d *Dataset) columnIndices(subset []string) ([]int, error) {
	if len(subset) == 0 {
		all := make([]int, len(d.cols))
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	out := make([]int, 0, len(subset))
	for _, name := range subset {
		ci := d.ColumnIndex(name)
		if ci < 0 {
			return nil, fmt.Errorf("dataset: unknown column %q", name)
		}
		out = append(out, ci)
	}
	return out, nil
}
