package frame

// columnSet is an insertion-ordered mapping from column name to values.
type columnSet struct {
	names []string
	cols  map[string][]Value
}

func newColumnSet() *columnSet {
	return &columnSet{cols: make(map[string][]Value)}
}

func (s *columnSet) has(name string) bool {
	_, ok := s.cols[name]
	return ok
}

func (s *columnSet) get(name string) ([]Value, bool) {
	v, ok := s.cols[name]
	return v, ok
}

// set replaces an existing column in place or appends a new one.
func (s *columnSet) set(name string, values []Value) {
	if !s.has(name) {
		s.names = append(s.names, name)
	}
	s.cols[name] = values
}

func (s *columnSet) remove(name string) {
	if !s.has(name) {
		return
	}
	delete(s.cols, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i:i], s.names[i+1:]...)
			break
		}
	}
}

func (s *columnSet) clone() *columnSet {
	out := &columnSet{
		names: append([]string(nil), s.names...),
		cols:  make(map[string][]Value, len(s.cols)),
	}
	for name, vals := range s.cols {
		out.cols[name] = append([]Value(nil), vals...)
	}
	return out
}

// pick returns a new set holding rows idx of every column, in idx order.
func (s *columnSet) pick(idx []int) *columnSet {
	out := &columnSet{
		names: append([]string(nil), s.names...),
		cols:  make(map[string][]Value, len(s.cols)),
	}
	for name, vals := range s.cols {
		out.cols[name] = pickRows(vals, idx)
	}
	return out
}

func (s *columnSet) equal(o *columnSet) bool {
	if len(s.cols) != len(o.cols) {
		return false
	}
	for name, vals := range s.cols {
		other, ok := o.cols[name]
		if !ok || !valuesEqual(vals, other) {
			return false
		}
	}
	return true
}

func pickRows(vals []Value, idx []int) []Value {
	out := make([]Value, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
