package model

import (
	"fmt"
	"time"
)

// Table is a time-indexed result table with named float columns.
type Table struct {
	Index   []time.Time
	Columns []string
	data    map[string][]float64
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...), data: make(map[string][]float64, len(columns))}
	for _, c := range columns {
		t.data[c] = nil
	}
	return t
}

// Append adds one row. values must follow the column order.
func (t *Table) Append(ts time.Time, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Index = append(t.Index, ts)
	for i, c := range t.Columns {
		t.data[c] = append(t.data[c], values[i])
	}
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Index) }

// Column returns the values of a column.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.data[name]
	return v, ok
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []float64 {
	out := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.data[c][i]
	}
	return out
}
