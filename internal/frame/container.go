package frame

import (
	"fmt"
	"sort"

	apperrors "seriesframe/internal/errors"
)

// Container is one named, time-ordered record set: a time index plus data
// and label columns, all of the same length. Labels are stored like data
// but are split out of feature tables on export.
type Container struct {
	timeName string
	timeIdx  []Value
	hasTime  bool
	data     *columnSet
	labels   *columnSet
	n        int
	sized    bool
}

// NewContainer returns an empty container
func NewContainer() *Container {
	return &Container{
		data:   newColumnSet(),
		labels: newColumnSet(),
	}
}

// Len returns the row count N
func (c *Container) Len() int { return c.n }

// TimeName returns the name of the time index, or "" if none is set
func (c *Container) TimeName() string { return c.timeName }

// HasTimeIndex reports whether a time index has been set
func (c *Container) HasTimeIndex() bool { return c.hasTime }

// TimeIndex returns a copy of the time index
func (c *Container) TimeIndex() []Value {
	return append([]Value(nil), c.timeIdx...)
}

// DataNames returns data column names in insertion order
func (c *Container) DataNames() []string {
	return append([]string(nil), c.data.names...)
}

// LabelNames returns label column names in insertion order
func (c *Container) LabelNames() []string {
	return append([]string(nil), c.labels.names...)
}

// IsLabel reports whether name is a label column
func (c *Container) IsLabel(name string) bool { return c.labels.has(name) }

// Column returns a copy of the named column. The time index is addressable
// by its name.
func (c *Container) Column(name string) ([]Value, error) {
	vals, ok := c.lookup(name)
	if !ok {
		return nil, apperrors.NewKeyNotFoundError("column", name)
	}
	return append([]Value(nil), vals...), nil
}

func (c *Container) lookup(name string) ([]Value, bool) {
	if c.hasTime && name == c.timeName {
		return c.timeIdx, true
	}
	if vals, ok := c.data.get(name); ok {
		return vals, true
	}
	return c.labels.get(name)
}

// checkLength enforces the shared row count. Only the time index may
// redefine N, and only while it is the sole column.
func (c *Container) checkLength(name string, got int) error {
	if c.sized && got != c.n {
		return apperrors.NewLengthMismatchError(name, c.n, got)
	}
	return nil
}

func (c *Container) fixLength(n int) {
	if !c.sized {
		c.n = n
		c.sized = true
	}
}

// SetTimeIndex sets or replaces the time axis.
func (c *Container) SetTimeIndex(values []Value, name string) error {
	if name == "" {
		return apperrors.NewInvalidInputError("time index name must not be empty")
	}
	if c.data.has(name) || c.labels.has(name) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("time index name %q is already a column", name))
	}
	if len(c.data.names) == 0 && len(c.labels.names) == 0 {
		c.sized = false
	}
	if err := c.checkLength(name, len(values)); err != nil {
		return err
	}
	c.fixLength(len(values))
	c.timeName = name
	c.timeIdx = append([]Value(nil), values...)
	c.hasTime = true
	return nil
}

// SetData sets or replaces a data column
func (c *Container) SetData(values []Value, name string) error {
	if err := c.checkColumnName(name, c.labels, "label"); err != nil {
		return err
	}
	if err := c.checkLength(name, len(values)); err != nil {
		return err
	}
	c.fixLength(len(values))
	c.data.set(name, append([]Value(nil), values...))
	return nil
}

// SetLabels sets or replaces a label column
func (c *Container) SetLabels(values []Value, name string) error {
	if err := c.checkColumnName(name, c.data, "data"); err != nil {
		return err
	}
	if err := c.checkLength(name, len(values)); err != nil {
		return err
	}
	c.fixLength(len(values))
	c.labels.set(name, append([]Value(nil), values...))
	return nil
}

// PromoteLabel moves the data column name to the label columns, keeping
// its values.
func (c *Container) PromoteLabel(name string) error {
	vals, ok := c.data.get(name)
	if !ok {
		return apperrors.NewKeyNotFoundError("data column", name)
	}
	c.data.remove(name)
	c.labels.set(name, vals)
	return nil
}

func (c *Container) checkColumnName(name string, other *columnSet, otherKind string) error {
	if name == "" {
		return apperrors.NewInvalidInputError("column name must not be empty")
	}
	if c.hasTime && name == c.timeName {
		return apperrors.NewInvalidInputError(fmt.Sprintf("column %q shares the time index name", name))
	}
	if other.has(name) {
		return apperrors.NewInvalidInputError(fmt.Sprintf("column %q is already a %s column", name, otherKind))
	}
	return nil
}

// RowRange selects rows [Start, End). Bounds are clamped to the container.
type RowRange struct {
	Start int
	End   int
}

// AllRows selects every row
var AllRows = RowRange{Start: 0, End: -1}

// Select returns the named columns restricted to rows. The time index is
// included only when named. With no names every data and label column
// is returned.
func (c *Container) Select(rows RowRange, columns ...string) (map[string][]Value, error) {
	start, end := rows.Start, rows.End
	if start < 0 {
		start = 0
	}
	if end < 0 || end > c.n {
		end = c.n
	}
	if start > end {
		start = end
	}
	if len(columns) == 0 {
		columns = append(c.DataNames(), c.labels.names...)
	}
	out := make(map[string][]Value, len(columns))
	for _, name := range columns {
		vals, ok := c.lookup(name)
		if !ok {
			return nil, apperrors.NewKeyNotFoundError("column", name)
		}
		out[name] = append([]Value(nil), vals[start:end]...)
	}
	return out, nil
}

// sortOrder returns the stable ascending permutation of the time index,
// reversed when descending.
func (c *Container) sortOrder(ascending bool) []int {
	idx := make([]int, c.n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return c.timeIdx[idx[a]].Compare(c.timeIdx[idx[b]]) < 0
	})
	if !ascending {
		for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
			idx[i], idx[j] = idx[j], idx[i]
		}
	}
	return idx
}

// Sort permutes every column by time index order. Ties keep their original
// order when ascending; descending is the exact reverse of ascending.
func (c *Container) Sort(ascending bool) {
	if !c.hasTime || c.n < 2 {
		return
	}
	idx := c.sortOrder(ascending)
	c.timeIdx = pickRows(c.timeIdx, idx)
	c.data = c.data.pick(idx)
	c.labels = c.labels.pick(idx)
}

// Table materializes the time index, data and label columns, each group
// in insertion order, as a row-oriented table.
func (c *Container) Table() *Table {
	var names []string
	var cols [][]Value
	if c.hasTime {
		names = append(names, c.timeName)
		cols = append(cols, c.timeIdx)
	}
	for _, name := range c.data.names {
		names = append(names, name)
		cols = append(cols, c.data.cols[name])
	}
	for _, name := range c.labels.names {
		names = append(names, name)
		cols = append(cols, c.labels.cols[name])
	}
	return tableFromColumns(names, cols, c.n)
}

// Equal reports value equality: same time index name, same column name
// sets and identical values in order.
func (c *Container) Equal(o *Container) bool {
	if o == nil {
		return false
	}
	if c.hasTime != o.hasTime || c.timeName != o.timeName || c.n != o.n {
		return false
	}
	if !valuesEqual(c.timeIdx, o.timeIdx) {
		return false
	}
	return c.data.equal(o.data) && c.labels.equal(o.labels)
}

// Clone returns a deep copy
func (c *Container) Clone() *Container {
	return &Container{
		timeName: c.timeName,
		timeIdx:  append([]Value(nil), c.timeIdx...),
		hasTime:  c.hasTime,
		data:     c.data.clone(),
		labels:   c.labels.clone(),
		n:        c.n,
		sized:    c.sized,
	}
}

// subset returns a new container holding rows idx.
func (c *Container) subset(idx []int) *Container {
	out := &Container{
		timeName: c.timeName,
		hasTime:  c.hasTime,
		data:     c.data.pick(idx),
		labels:   c.labels.pick(idx),
		n:        len(idx),
		sized:    true,
	}
	if c.hasTime {
		out.timeIdx = pickRows(c.timeIdx, idx)
	}
	return out
}
