package frame

import (
	"fmt"
	"sort"

	apperrors "seriesframe/internal/errors"
)

// TransformFunc computes derived columns from a full input column.
type TransformFunc func(column []Value, args ...any) (Output, error)

// NamedColumn is one entry of a mapping output
type NamedColumn struct {
	Name   string
	Values []Value
}

// Output is what a TransformFunc returns: either one sequence or an
// ordered mapping of sub-name to sequence.
type Output struct {
	single  []Value
	mapping []NamedColumn
	multi   bool
}

// Sequence returns an output stored as a single column.
func Sequence(values []Value) Output {
	return Output{single: values}
}

// Mapping returns an output stored as one column per entry, named
// "{output}_{entry}".
func Mapping(cols ...NamedColumn) Output {
	return Output{mapping: cols, multi: true}
}

// MappingOf builds a Mapping from a map, ordered by sub-name.
func MappingOf(m map[string][]Value) Output {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	cols := make([]NamedColumn, len(names))
	for i, name := range names {
		cols[i] = NamedColumn{Name: name, Values: m[name]}
	}
	return Mapping(cols...)
}

// Columns returns the (name, values) pairs the output produces for the
// given output name.
func (o Output) Columns(output string) []NamedColumn {
	if !o.multi {
		return []NamedColumn{{Name: output, Values: o.single}}
	}
	cols := make([]NamedColumn, len(o.mapping))
	for i, sub := range o.mapping {
		cols[i] = NamedColumn{Name: output + "_" + sub.Name, Values: sub.Values}
	}
	return cols
}

// Transform applies fn to the whole input column and stores its result as
// data. Nothing is stored unless every produced column is valid.
func (c *Container) Transform(input, output string, fn TransformFunc, args ...any) error {
	if fn == nil {
		return apperrors.NewInvalidInputError("transform function is nil")
	}
	vals, ok := c.lookup(input)
	if !ok {
		return apperrors.NewInvalidInputError(fmt.Sprintf("unknown input column %q", input))
	}
	out, err := fn(append([]Value(nil), vals...), args...)
	if err != nil {
		return fmt.Errorf("transform %s -> %s: %w", input, output, err)
	}

	cols := out.Columns(output)
	for _, col := range cols {
		if err := c.checkColumnName(col.Name, c.labels, "label"); err != nil {
			return err
		}
		if err := c.checkLength(col.Name, len(col.Values)); err != nil {
			return err
		}
	}
	for _, col := range cols {
		c.fixLength(len(col.Values))
		c.data.set(col.Name, append([]Value(nil), col.Values...))
	}
	return nil
}
