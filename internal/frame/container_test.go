package frame

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seriesframe/internal/errors"
)

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c := NewContainer()
	require.NoError(t, c.SetTimeIndex(Numbers(3, 1, 2), "t"))
	require.NoError(t, c.SetData(Numbers(30, 10, 20), "x"))
	require.NoError(t, c.SetLabels(Texts("c", "a", "b"), "y"))
	return c
}

func TestValue_EqualAndCompare(t *testing.T) {
	assert.True(t, NaN().Equal(NaN()))
	assert.False(t, Number(1).Equal(Text("1")))
	assert.True(t, List(Number(1), Text("a")).Equal(List(Number(1), Text("a"))))
	assert.Equal(t, -1, NaN().Compare(Number(-math.MaxFloat64)))
	assert.Equal(t, -1, Number(1).Compare(Number(2)))
	assert.Equal(t, 1, Text("b").Compare(Text("a")))

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", Time(day).String())
	assert.Equal(t, "2024-01-02T15:04:05", Time(day.Add(15*time.Hour+4*time.Minute+5*time.Second)).String())
	assert.Equal(t, "1.5", Number(1.5).String())
	assert.Equal(t, "1", Number(1).String())
	assert.True(t, Null().IsMissing())
	assert.True(t, NaN().IsMissing())
	assert.False(t, Number(0).IsMissing())
}

func TestContainer_LengthInvariant(t *testing.T) {
	c := newTestContainer(t)

	err := c.SetData(Numbers(1, 2), "z")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLengthMismatch))
	assert.Equal(t, apperrors.ErrTypeLengthMismatch, apperrors.TypeOf(err))

	err = c.SetLabels(Numbers(1), "w")
	assert.ErrorIs(t, err, apperrors.ErrLengthMismatch)

	err = c.SetTimeIndex(Numbers(1, 2, 3, 4), "t")
	assert.ErrorIs(t, err, apperrors.ErrLengthMismatch)

	// nothing changed
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"x"}, c.DataNames())
	assert.Equal(t, []string{"y"}, c.LabelNames())
}

func TestContainer_TimeIndexAloneRedefinesLength(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.SetTimeIndex(Numbers(1, 2, 3), "t"))
	require.NoError(t, c.SetTimeIndex(Numbers(1, 2), "t"))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.SetData(Numbers(5, 6), "x"))
	assert.ErrorIs(t, c.SetTimeIndex(Numbers(1, 2, 3), "t"), apperrors.ErrLengthMismatch)
}

func TestContainer_NameCollisions(t *testing.T) {
	c := newTestContainer(t)

	tests := []struct {
		name string
		run  func() error
	}{
		{"data shadows label", func() error { return c.SetData(Numbers(1, 2, 3), "y") }},
		{"label shadows data", func() error { return c.SetLabels(Numbers(1, 2, 3), "x") }},
		{"data shadows time", func() error { return c.SetData(Numbers(1, 2, 3), "t") }},
		{"time shadows data", func() error { return c.SetTimeIndex(Numbers(1, 2, 3), "x") }},
		{"empty name", func() error { return c.SetData(Numbers(1, 2, 3), "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), apperrors.ErrInvalidInput)
		})
	}
}

func TestContainer_ReplaceKeepsPosition(t *testing.T) {
	c := newTestContainer(t)
	require.NoError(t, c.SetData(Numbers(1, 1, 1), "z"))
	require.NoError(t, c.SetData(Numbers(2, 2, 2), "x"))
	assert.Equal(t, []string{"x", "z"}, c.DataNames())

	x, err := c.Column("x")
	require.NoError(t, err)
	assert.Equal(t, Numbers(2, 2, 2), x)
}

func TestContainer_Select(t *testing.T) {
	c := newTestContainer(t)

	got, err := c.Select(RowRange{Start: 1, End: 3}, "x", "t")
	require.NoError(t, err)
	assert.Equal(t, Numbers(10, 20), got["x"])
	assert.Equal(t, Numbers(1, 2), got["t"])

	all, err := c.Select(AllRows)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "t")

	clamped, err := c.Select(RowRange{Start: -5, End: 100}, "y")
	require.NoError(t, err)
	assert.Equal(t, Texts("c", "a", "b"), clamped["y"])

	_, err = c.Select(AllRows, "missing")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestContainer_Sort(t *testing.T) {
	c := newTestContainer(t)
	c.Sort(true)

	assert.Equal(t, Numbers(1, 2, 3), c.TimeIndex())
	x, _ := c.Column("x")
	y, _ := c.Column("y")
	assert.Equal(t, Numbers(10, 20, 30), x)
	assert.Equal(t, Texts("a", "b", "c"), y)

	c.Sort(false)
	assert.Equal(t, Numbers(3, 2, 1), c.TimeIndex())
	x, _ = c.Column("x")
	assert.Equal(t, Numbers(30, 20, 10), x)
}

func TestContainer_SortIsFixedPoint(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.SetTimeIndex(Numbers(2, 1, 2, 1), "t"))
	require.NoError(t, c.SetData(Texts("a", "b", "c", "d"), "x"))

	c.Sort(true)
	once := c.Clone()
	c.Sort(true)
	assert.True(t, once.Equal(c))
}

func TestContainer_SortStableOnTies(t *testing.T) {
	c := NewContainer()
	require.NoError(t, c.SetTimeIndex(Numbers(2, 1, 2, 1), "t"))
	require.NoError(t, c.SetData(Texts("a", "b", "c", "d"), "x"))

	c.Sort(true)
	x, _ := c.Column("x")
	assert.Equal(t, Texts("b", "d", "a", "c"), x)

	c.Sort(false)
	x, _ = c.Column("x")
	assert.Equal(t, Texts("c", "a", "d", "b"), x)
}

func TestContainer_EqualAndClone(t *testing.T) {
	a := newTestContainer(t)
	b := a.Clone()
	assert.True(t, a.Equal(b))

	require.NoError(t, b.SetData(Numbers(0, 0, 0), "x"))
	assert.False(t, a.Equal(b))
	x, _ := a.Column("x")
	assert.Equal(t, Numbers(30, 10, 20), x)
}

func TestContainer_Transform(t *testing.T) {
	double := func(col []Value, _ ...any) (Output, error) {
		out := make([]Value, len(col))
		for i, v := range col {
			f, _ := v.Float()
			out[i] = Number(f * 2)
		}
		return Sequence(out), nil
	}

	c := newTestContainer(t)
	require.NoError(t, c.Transform("x", "x2", double))
	x2, err := c.Column("x2")
	require.NoError(t, err)
	assert.Equal(t, Numbers(60, 20, 40), x2)
	assert.False(t, c.IsLabel("x2"))

	t.Run("mapping output", func(t *testing.T) {
		split := func(col []Value, _ ...any) (Output, error) {
			return Mapping(
				NamedColumn{Name: "lo", Values: col},
				NamedColumn{Name: "hi", Values: col},
			), nil
		}
		require.NoError(t, c.Transform("x", "band", split))
		assert.Contains(t, c.DataNames(), "band_lo")
		assert.Contains(t, c.DataNames(), "band_hi")
	})

	t.Run("mapping from map is ordered by name", func(t *testing.T) {
		out := MappingOf(map[string][]Value{"z": Numbers(1), "a": Numbers(2)})
		cols := out.Columns("m")
		require.Len(t, cols, 2)
		assert.Equal(t, "m_a", cols[0].Name)
		assert.Equal(t, "m_z", cols[1].Name)
	})

	t.Run("wrong length stores nothing", func(t *testing.T) {
		short := func(col []Value, _ ...any) (Output, error) {
			return Mapping(
				NamedColumn{Name: "ok", Values: col},
				NamedColumn{Name: "bad", Values: col[:1]},
			), nil
		}
		before := c.DataNames()
		assert.ErrorIs(t, c.Transform("x", "s", short), apperrors.ErrLengthMismatch)
		assert.Equal(t, before, c.DataNames())
	})

	t.Run("unknown input", func(t *testing.T) {
		assert.ErrorIs(t, c.Transform("nope", "o", double), apperrors.ErrInvalidInput)
	})

	t.Run("function error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		fail := func([]Value, ...any) (Output, error) { return Output{}, boom }
		assert.ErrorIs(t, c.Transform("x", "o", fail), boom)
	})

	t.Run("time index as input", func(t *testing.T) {
		require.NoError(t, c.Transform("t", "t2", double))
		t2, _ := c.Column("t2")
		assert.Equal(t, Numbers(6, 2, 4), t2)
	})
}

func TestContainerFromTable_DuplicateColumns(t *testing.T) {
	tbl := &Table{
		Columns: []string{"t", "x", "x"},
		Rows:    [][]Value{{Number(1), Number(10), Number(99)}},
	}
	_, err := ContainerFromTable(tbl, "t")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestValue_NegativeZeroKey(t *testing.T) {
	assert.Equal(t, Number(0).key(), Number(math.Copysign(0, -1)).key())

	c := NewContainer()
	require.NoError(t, c.SetData(Numbers(1, 2), "x"))
	require.NoError(t, c.SetData([]Value{Number(0), Number(math.Copysign(0, -1))}, "cat"))
	col, err := NewCollection(c, "cat")
	require.NoError(t, err)
	assert.Equal(t, 1, col.Len())
}

func TestContainerFromTable(t *testing.T) {
	tbl := &Table{
		Columns: []string{"Date", "Close", "Target"},
		Rows: [][]Value{
			{Number(1), Number(10), Number(0)},
			{Number(2), Number(11), Number(1)},
		},
	}
	c, err := ContainerFromTable(tbl, "Date", "Target")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "Date", c.TimeName())
	assert.Equal(t, []string{"Close"}, c.DataNames())
	assert.Equal(t, []string{"Target"}, c.LabelNames())

	_, err = ContainerFromTable(tbl, "Date", "Missing")
	assert.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	ragged := &Table{Columns: []string{"a", "b"}, Rows: [][]Value{{Number(1)}}}
	_, err = ContainerFromTable(ragged, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestContainer_MakeTable(t *testing.T) {
	c := newTestContainer(t)

	t.Run("plain", func(t *testing.T) {
		out, err := c.MakeTable(ExportOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"t", "x", "y"}, out.Data.Columns)
		assert.Nil(t, out.Labels)
		assert.Equal(t, 3, out.Data.Len())
	})

	t.Run("separate labels", func(t *testing.T) {
		out, err := c.MakeTable(ExportOptions{SeparateLabels: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"t", "x"}, out.Data.Columns)
		assert.Equal(t, []string{"y"}, out.Labels.Columns)
		assert.Equal(t, out.Data.Len(), out.Labels.Len())
	})

	t.Run("expand time", func(t *testing.T) {
		out, err := c.MakeTable(ExportOptions{ExpandTime: true, SeparateLabels: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"x_3", "x_1", "x_2"}, out.Data.Columns)
		assert.Equal(t, []string{"y_3", "y_1", "y_2"}, out.Labels.Columns)
		require.Equal(t, 1, out.Data.Len())
		assert.Equal(t, List(Number(30)), out.Data.Rows[0][0])
	})

	t.Run("alignment policy rejected", func(t *testing.T) {
		_, err := c.MakeTable(ExportOptions{Policy: PolicyPad})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
