package frame

import (
	"fmt"

	apperrors "seriesframe/internal/errors"
)

// Table is a flat, row-oriented export: ordered column names and rows of
// cells in the same order.
type Table struct {
	Columns []string
	Rows    [][]Value
}

func tableFromColumns(names []string, cols [][]Value, n int) *Table {
	t := &Table{
		Columns: append([]string{}, names...),
		Rows:    make([][]Value, n),
	}
	for i := 0; i < n; i++ {
		row := make([]Value, len(cols))
		for j, col := range cols {
			row[j] = col[i]
		}
		t.Rows[i] = row
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the values of one column top to bottom
func (t *Table) Column(name string) ([]Value, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, apperrors.NewKeyNotFoundError("column", name)
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// Exportable is anything the reshape engine can flatten: a Container or a
// Collection.
type Exportable interface {
	MakeTable(opts ExportOptions) (*Export, error)
}

// ContainerFromTable builds a Container from a source table. timeName
// selects the time index column; labelNames are stored as labels and every
// other column as data.
func ContainerFromTable(t *Table, timeName string, labelNames ...string) (*Container, error) {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, apperrors.NewInvalidInputError(
				fmt.Sprintf("row %d has %d cells, want %d", i, len(row), len(t.Columns)))
		}
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, name := range t.Columns {
		if seen[name] {
			return nil, apperrors.NewInvalidInputError(fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = true
	}
	isLabel := make(map[string]bool, len(labelNames))
	for _, name := range labelNames {
		if t.Index(name) < 0 {
			return nil, apperrors.NewKeyNotFoundError("column", name)
		}
		isLabel[name] = true
	}

	c := NewContainer()
	if timeName != "" {
		col, err := t.Column(timeName)
		if err != nil {
			return nil, err
		}
		if err := c.SetTimeIndex(col, timeName); err != nil {
			return nil, err
		}
	}
	for _, name := range t.Columns {
		if name == timeName {
			continue
		}
		col, _ := t.Column(name)
		var err error
		if isLabel[name] {
			err = c.SetLabels(col, name)
		} else {
			err = c.SetData(col, name)
		}
		if err != nil {
			return nil, err
		}
	}
	if !c.sized {
		c.fixLength(len(t.Rows))
	}
	return c, nil
}

// Build is the adapter entry point: it returns a Container when
// categoryName is empty and a Collection partitioned by it otherwise.
func Build(t *Table, timeName, categoryName string, labelNames ...string) (Exportable, error) {
	c, err := ContainerFromTable(t, timeName, labelNames...)
	if err != nil {
		return nil, err
	}
	if categoryName == "" {
		return c, nil
	}
	return NewCollection(c, categoryName)
}
