package frame

import "sort"

// RemoveDifferentTimeIndex returns a new Collection whose members keep only
// the rows at times present in every member, in their original order.
// An empty intersection yields zero-row members.
func (c *Collection) RemoveDifferentTimeIndex() *Collection {
	if len(c.members) == 0 || !c.members[0].hasTime {
		return c.Clone()
	}

	present := make(map[string]int)
	for _, m := range c.members {
		seen := make(map[string]bool, m.n)
		for _, t := range m.timeIdx {
			k := t.key()
			if !seen[k] {
				seen[k] = true
				present[k]++
			}
		}
	}

	want := len(c.members)
	return c.withMembers(func(m *Container) *Container {
		idx := make([]int, 0, m.n)
		for i, t := range m.timeIdx {
			if present[t.key()] == want {
				idx = append(idx, i)
			}
		}
		return m.subset(idx)
	})
}

// PadTimeIndex returns a new Collection whose members all cover the union
// of the members' times. Missing rows are synthesized with fill in every
// data and label column, and each member is sorted ascending by time.
func (c *Collection) PadTimeIndex(pad Value) *Collection {
	if len(c.members) == 0 || !c.members[0].hasTime {
		return c.Clone()
	}

	var union []Value
	seen := make(map[string]bool)
	for _, m := range c.members {
		for _, t := range m.timeIdx {
			if k := t.key(); !seen[k] {
				seen[k] = true
				union = append(union, t)
			}
		}
	}
	sort.SliceStable(union, func(a, b int) bool { return union[a].Compare(union[b]) < 0 })

	return c.withMembers(func(m *Container) *Container {
		have := make(map[string]bool, m.n)
		for _, t := range m.timeIdx {
			have[t.key()] = true
		}
		var missing []Value
		for _, t := range union {
			if !have[t.key()] {
				missing = append(missing, t)
			}
		}
		out := m.appendRows(missing, pad)
		out.Sort(true)
		return out
	})
}

// appendRows returns a copy of c with one extra row per time in times,
// every other cell set to with.
func (c *Container) appendRows(times []Value, with Value) *Container {
	out := c.Clone()
	if len(times) == 0 {
		return out
	}
	pad := fill(len(times), with)
	out.timeIdx = append(out.timeIdx, times...)
	for _, name := range out.data.names {
		out.data.cols[name] = append(out.data.cols[name], pad...)
	}
	for _, name := range out.labels.names {
		out.labels.cols[name] = append(out.labels.cols[name], pad...)
	}
	out.n += len(times)
	out.sized = true
	return out
}
