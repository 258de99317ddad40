package frame

import (
	"context"

	"golang.org/x/sync/errgroup"

	apperrors "seriesframe/internal/errors"
)

// Collection partitions a source Container by the values of one data
// column. Each member holds only its key's rows with the category column
// removed; keys keep the order in which they were first seen.
type Collection struct {
	category string
	timeName string
	keys     []Value
	index    map[string]int
	members  []*Container
}

// NewCollection groups src's rows by categoryColumn
func NewCollection(src *Container, categoryColumn string) (*Collection, error) {
	catVals, ok := src.data.get(categoryColumn)
	if !ok {
		return nil, apperrors.NewKeyNotFoundError("category column", categoryColumn)
	}

	c := &Collection{
		category: categoryColumn,
		timeName: src.timeName,
		index:    make(map[string]int),
	}
	var rows [][]int
	for i, v := range catVals {
		k := v.key()
		pos, seen := c.index[k]
		if !seen {
			pos = len(c.keys)
			c.index[k] = pos
			c.keys = append(c.keys, v)
			rows = append(rows, nil)
		}
		rows[pos] = append(rows[pos], i)
	}
	for _, idx := range rows {
		m := src.subset(idx)
		m.data.remove(categoryColumn)
		c.members = append(c.members, m)
	}
	return c, nil
}

// CategoryName returns the name of the column the collection was built on
func (c *Collection) CategoryName() string { return c.category }

// TimeName returns the shared time index name
func (c *Collection) TimeName() string { return c.timeName }

// Len returns the number of category keys
func (c *Collection) Len() int { return len(c.keys) }

// Keys returns the category keys in first-seen order
func (c *Collection) Keys() []Value {
	return append([]Value(nil), c.keys...)
}

// Members returns the member containers in key order. They are shared with
// the collection, so mutating one mutates the collection.
func (c *Collection) Members() []*Container {
	return append([]*Container(nil), c.members...)
}

// Lookup returns the member for key
func (c *Collection) Lookup(key Value) (*Container, error) {
	pos, ok := c.index[key.key()]
	if !ok {
		return nil, apperrors.NewKeyNotFoundError("category key", key.String())
	}
	return c.members[pos], nil
}

// Clone returns a deep copy
func (c *Collection) Clone() *Collection {
	return c.withMembers(func(m *Container) *Container { return m.Clone() })
}

func (c *Collection) withMembers(fn func(*Container) *Container) *Collection {
	out := &Collection{
		category: c.category,
		timeName: c.timeName,
		keys:     append([]Value(nil), c.keys...),
		index:    make(map[string]int, len(c.index)),
		members:  make([]*Container, len(c.members)),
	}
	for k, v := range c.index {
		out.index[k] = v
	}
	for i, m := range c.members {
		out.members[i] = fn(m)
	}
	return out
}

// Sort re-sorts the named members, or all members when no key is given.
// Unknown keys fail before any member is touched.
func (c *Collection) Sort(ascending bool, keys ...Value) error {
	targets := c.members
	if len(keys) > 0 {
		targets = make([]*Container, 0, len(keys))
		for _, k := range keys {
			m, err := c.Lookup(k)
			if err != nil {
				return err
			}
			targets = append(targets, m)
		}
	}
	for _, m := range targets {
		m.Sort(ascending)
	}
	return nil
}

// PromoteLabel turns the data column name into a label column in every
// member. Members missing the column fail the call before any is changed.
func (c *Collection) PromoteLabel(name string) error {
	for i, m := range c.members {
		if !m.data.has(name) {
			return apperrors.NewKeyNotFoundError("data column", name).
				WithContext("key", c.keys[i].String())
		}
	}
	for _, m := range c.members {
		if err := m.PromoteLabel(name); err != nil {
			return err
		}
	}
	return nil
}

// Transform applies the Container transform to every member. With
// concurrency > 1 members are processed by up to that many goroutines,
// each on a private copy. The collection is updated only after every task
// succeeded; the first failure aborts the whole operation.
func (c *Collection) Transform(ctx context.Context, input, output string, fn TransformFunc, concurrency int, args ...any) error {
	return c.Apply(ctx, func(m *Container) error {
		return m.Transform(input, output, fn, args...)
	}, concurrency)
}

// Apply runs fn on a private copy of every member with the same barrier as
// Transform. Failures are reported as TASK_FAILURE naming the member key.
func (c *Collection) Apply(ctx context.Context, fn func(*Container) error, concurrency int) error {
	results := make([]*Container, len(c.members))
	task := func(i int) error {
		work := c.members[i].Clone()
		if err := fn(work); err != nil {
			return apperrors.NewTaskFailureError(c.keys[i].String(), err)
		}
		results[i] = work
		return nil
	}

	if concurrency <= 1 {
		for i := range c.members {
			if err := task(i); err != nil {
				return err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i := range c.members {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return task(i)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	copy(c.members, results)
	return nil
}
