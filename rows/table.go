// Package rows turns a selected tree node into a table of named columns
// and compares tables row by row.
package rows

import (
	"github.com/robert-malhotra/h5view/value"
)

// Column is one named, homogeneous column. Kind is the element kind of
// the dataset the column came from.
type Column struct {
	Name   string        `cbor:"name"`
	Kind   value.Kind    `cbor:"kind"`
	Values []value.Value `cbor:"values"`
}

// Table is a set of columns read side by side. Columns may differ in
// length; missing cells read as the zero Value.
type Table struct {
	Columns []Column `cbor:"columns"`
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.Columns) }

// NumRows returns the length of the longest column.
func (t *Table) NumRows() int {
	n := 0
	for _, c := range t.Columns {
		n = max(n, len(c.Values))
	}
	return n
}

// Cell returns the value at row i of column j, or the zero Value past the
// end of a short column.
func (t *Table) Cell(i, j int) value.Value {
	vals := t.Columns[j].Values
	if i < len(vals) {
		return vals[i]
	}
	return value.Value{}
}

// Row returns row i across all columns.
func (t *Table) Row(i int) []value.Value {
	row := make([]value.Value, len(t.Columns))
	for j := range t.Columns {
		row[j] = t.Cell(i, j)
	}
	return row
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		names[j] = c.Name
	}
	return names
}

// ColumnIndex returns the index of the first column called name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for j, c := range t.Columns {
		if c.Name == name {
			return j
		}
	}
	return -1
}
