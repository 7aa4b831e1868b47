package database

import "encoding/json"

// Row is an ordered mapping from column name to a converted scalar value.
// Immutable once constructed; both backends return the same shape so callers
// stay backend-agnostic.
type Row struct {
	columns []string
	values  []any
}

// NewRow builds a Row from a result schema and one converted value per
// column. The column slice is shared across all rows of a result set.
func NewRow(columns []string, values []any) (Row, error) {
	if len(columns) != len(values) {
		return Row{}, &ConversionError{Columns: len(columns), Values: len(values)}
	}
	return Row{columns: columns, values: values}, nil
}

// Columns returns the column names in result-schema order.
func (r Row) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.values)
}

// Value returns the value at position i.
func (r Row) Value(i int) any {
	return r.values[i]
}

// Get returns the value for the named column and whether it exists.
func (r Row) Get(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// AsMap returns the row as a column-to-value map. Column order is lost; use
// Columns with Value when order matters.
func (r Row) AsMap() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON serializes the row as an object keyed by column name.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.AsMap())
}
