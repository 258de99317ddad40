package frame

import (
	"fmt"
	"strings"

	apperrors "seriesframe/internal/errors"
)

// Policy selects how member time indexes are aligned before export.
type Policy string

const (
	PolicyIgnore Policy = "ignore"
	PolicyPad    Policy = "pad"
	PolicyRemove Policy = "remove"
)

// ParsePolicy accepts a policy name case-insensitively. Empty means ignore.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyIgnore, nil
	case PolicyIgnore, PolicyPad, PolicyRemove:
		return p, nil
	default:
		return "", apperrors.NewInvalidInputError(fmt.Sprintf("unknown alignment policy %q", s))
	}
}

// ExportOptions controls how MakeTable flattens a Container or Collection.
type ExportOptions struct {
	// ExpandCategory widens per-key columns side by side into one unit.
	ExpandCategory bool
	// ExpandTime pivots each unit into a single row, one column per
	// (column, time) pair.
	ExpandTime bool
	Policy     Policy
	// SeparateLabels splits label columns into Export.Labels.
	SeparateLabels bool
	// Fill is used for padded rows and absent columns. A null Fill means NaN.
	Fill Value
}

func (o ExportOptions) fillValue() Value {
	if o.Fill.IsNull() {
		return NaN()
	}
	return o.Fill
}

// Export is the result of MakeTable. Labels is nil unless labels were
// separated; when set it has the same number of rows as Data.
type Export struct {
	Data   *Table
	Labels *Table
}

type role uint8

const (
	roleTime role = iota
	roleData
	roleLabel
	roleCategory
)

// outColumn is an export column that remembers the column it came from,
// so labels can be told apart after renaming.
type outColumn struct {
	name   string
	base   string
	role   role
	values []Value
}

// unit is one exportable block of rows.
type unit struct {
	key  Value
	cols []outColumn
	n    int
}

func containerUnit(c *Container, key Value) unit {
	u := unit{key: key, n: c.n}
	if c.hasTime {
		u.cols = append(u.cols, outColumn{name: c.timeName, base: c.timeName, role: roleTime, values: c.timeIdx})
	}
	for _, name := range c.data.names {
		u.cols = append(u.cols, outColumn{name: name, base: name, role: roleData, values: c.data.cols[name]})
	}
	for _, name := range c.labels.names {
		u.cols = append(u.cols, outColumn{name: name, base: name, role: roleLabel, values: c.labels.cols[name]})
	}
	return u
}

// MakeTable exports a single container. ExpandCategory has no effect and
// only the ignore policy is meaningful.
func (c *Container) MakeTable(opts ExportOptions) (*Export, error) {
	p, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	if p != PolicyIgnore {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("policy %q needs a collection", p))
	}

	u := containerUnit(c, Null())
	if opts.ExpandTime {
		if u, err = pivotTime(u); err != nil {
			return nil, err
		}
	}
	return finish(u.cols, u.n, c.LabelNames(), opts.SeparateLabels)
}

// MakeTable aligns, expands and flattens the collection. Options are
// validated before any work is done.
func (c *Collection) MakeTable(opts ExportOptions) (*Export, error) {
	p, err := ParsePolicy(string(opts.Policy))
	if err != nil {
		return nil, err
	}
	if p == PolicyIgnore && (opts.ExpandCategory || opts.ExpandTime) {
		return nil, apperrors.NewInvalidInputError("expansion requires the pad or remove policy")
	}
	pad := opts.fillValue()

	aligned := c
	switch p {
	case PolicyPad:
		aligned = c.PadTimeIndex(pad)
	case PolicyRemove:
		aligned = c.RemoveDifferentTimeIndex()
	}

	var labelBases []string
	seenLabel := make(map[string]bool)
	for _, m := range aligned.members {
		for _, name := range m.labels.names {
			if !seenLabel[name] {
				seenLabel[name] = true
				labelBases = append(labelBases, name)
			}
		}
	}

	var units []unit
	if opts.ExpandCategory {
		u, err := aligned.collapse(pad)
		if err != nil {
			return nil, err
		}
		units = []unit{u}
	} else {
		for i, m := range aligned.members {
			units = append(units, containerUnit(m, aligned.keys[i]))
		}
	}

	if opts.ExpandTime {
		for i := range units {
			if units[i], err = pivotTime(units[i]); err != nil {
				return nil, err
			}
		}
	}

	if opts.ExpandCategory {
		return finish(units[0].cols, units[0].n, labelBases, opts.SeparateLabels)
	}
	cols, n := concatUnits(units, aligned.category, pad)
	return finish(cols, n, labelBases, opts.SeparateLabels)
}

// collapse lays every member's data and label columns side by side as
// "{column}_{key}", matched row by row against the first member's times.
func (c *Collection) collapse(pad Value) (unit, error) {
	if len(c.members) == 0 {
		return unit{}, nil
	}
	ref := c.members[0]
	u := unit{n: ref.n}
	if ref.hasTime {
		u.cols = append(u.cols, outColumn{name: c.timeName, base: c.timeName, role: roleTime, values: ref.timeIdx})
	}

	for i, m := range c.members {
		rows, err := matchRows(ref, m)
		if err != nil {
			return unit{}, err
		}
		suffix := "_" + c.keys[i].String()
		add := func(set *columnSet, r role) {
			for _, name := range set.names {
				src := set.cols[name]
				vals := make([]Value, len(rows))
				for j, at := range rows {
					if at < 0 {
						vals[j] = pad
					} else {
						vals[j] = src[at]
					}
				}
				u.cols = append(u.cols, outColumn{name: name + suffix, base: name, role: r, values: vals})
			}
		}
		add(m.data, roleData)
		add(m.labels, roleLabel)
	}
	return u, nil
}

// matchRows maps each row of ref to the row of m with the same time,
// consuming duplicates in order. Unmatched rows map to -1. Without a time
// index rows are matched by position.
func matchRows(ref, m *Container) ([]int, error) {
	rows := make([]int, ref.n)
	if !ref.hasTime {
		if m.n != ref.n {
			return nil, apperrors.NewLengthMismatchError("member rows", ref.n, m.n)
		}
		for i := range rows {
			rows[i] = i
		}
		return rows, nil
	}
	pending := make(map[string][]int, m.n)
	for i, t := range m.timeIdx {
		k := t.key()
		pending[k] = append(pending[k], i)
	}
	for i, t := range ref.timeIdx {
		k := t.key()
		if q := pending[k]; len(q) > 0 {
			rows[i] = q[0]
			pending[k] = q[1:]
		} else {
			rows[i] = -1
		}
	}
	return rows, nil
}

// pivotTime turns an N-row unit into a single row with one column per
// (column, time) pair named "{column}_{time}". Cells become one-element
// lists unless they already are lists.
func pivotTime(u unit) (unit, error) {
	var times []Value
	found := false
	for _, col := range u.cols {
		if col.role == roleTime {
			times, found = col.values, true
			break
		}
	}
	if !found {
		return unit{}, apperrors.NewInvalidInputError("time expansion requires a time index")
	}

	if u.n == 0 {
		return unit{key: u.key}, nil
	}
	out := unit{key: u.key, n: 1}
	for _, col := range u.cols {
		if col.role == roleTime || col.role == roleCategory {
			continue
		}
		for i, t := range times {
			cell := col.values[i]
			if cell.Kind() != KindList {
				cell = List(cell)
			}
			out.cols = append(out.cols, outColumn{
				name:   col.name + "_" + t.String(),
				base:   col.base,
				role:   col.role,
				values: []Value{cell},
			})
		}
	}
	return out, nil
}

// concatUnits stacks units over the union of their columns in first-seen
// order. Columns a unit lacks are filled, and the category column holding
// each unit's key is appended last.
func concatUnits(units []unit, category string, pad Value) ([]outColumn, int) {
	var cols []outColumn
	pos := make(map[string]int)
	for _, u := range units {
		for _, col := range u.cols {
			if _, ok := pos[col.name]; !ok {
				pos[col.name] = len(cols)
				cols = append(cols, outColumn{name: col.name, base: col.base, role: col.role})
			}
		}
	}
	catCol := outColumn{name: category, base: category, role: roleCategory}

	total := 0
	for _, u := range units {
		have := make(map[string][]Value, len(u.cols))
		for _, col := range u.cols {
			have[col.name] = col.values
		}
		for i := range cols {
			if vals, ok := have[cols[i].name]; ok {
				cols[i].values = append(cols[i].values, vals...)
			} else {
				cols[i].values = append(cols[i].values, fill(u.n, pad)...)
			}
		}
		catCol.values = append(catCol.values, fill(u.n, u.key)...)
		total += u.n
	}
	return append(cols, catCol), total
}

// finish builds the output tables, moving label columns to their own
// table when separate is set. Every recorded label must still be present
// unless the export has no rows.
func finish(cols []outColumn, n int, labelBases []string, separate bool) (*Export, error) {
	if !separate {
		return &Export{Data: tableOf(cols, n)}, nil
	}

	var data, labels []outColumn
	present := make(map[string]bool)
	for _, col := range cols {
		if col.role == roleLabel {
			labels = append(labels, col)
			present[col.base] = true
		} else {
			data = append(data, col)
		}
	}
	for _, base := range labelBases {
		if n > 0 && !present[base] {
			return nil, apperrors.NewKeyNotFoundError("label", base)
		}
	}
	return &Export{Data: tableOf(data, n), Labels: tableOf(labels, n)}, nil
}

func tableOf(cols []outColumn, n int) *Table {
	names := make([]string, len(cols))
	vals := make([][]Value, len(cols))
	for i, col := range cols {
		names[i] = col.name
		vals[i] = col.values
	}
	return tableFromColumns(names, vals, n)
}
