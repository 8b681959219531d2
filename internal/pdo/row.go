package pdo

import (
	"database/sql"
	"strconv"
)

// Row is one buffered result row. Every value is reachable both by its
// zero-based position and by its column name.
type Row struct {
	columns []string
	values  []sql.NullString
}

// NewRow builds a row from parallel column and value slices.
func NewRow(columns []string, values []sql.NullString) Row {
	return Row{columns: columns, values: values}
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.values) }

// Columns returns the column names in position order.
func (r Row) Columns() []string { return r.columns }

// At returns the value at position i.
func (r Row) At(i int) (sql.NullString, bool) {
	if i < 0 || i >= len(r.values) {
		return sql.NullString{}, false
	}
	return r.values[i], true
}

// Get returns the value of the named column. With duplicate names the last
// column wins.
func (r Row) Get(name string) (sql.NullString, bool) {
	for i := len(r.columns) - 1; i >= 0; i-- {
		if r.columns[i] == name && i < len(r.values) {
			return r.values[i], true
		}
	}
	return sql.NullString{}, false
}

// Strings returns the values in position order with NULL as "".
func (r Row) Strings() []string {
	out := make([]string, len(r.values))
	for i, v := range r.values {
		out[i] = v.String
	}
	return out
}

// Map returns the row keyed by both position ("0", "1", ...) and name.
func (r Row) Map() map[string]sql.NullString {
	m := make(map[string]sql.NullString, 2*len(r.values))
	for i, v := range r.values {
		m[strconv.Itoa(i)] = v
		if i < len(r.columns) {
			m[r.columns[i]] = v
		}
	}
	return m
}
