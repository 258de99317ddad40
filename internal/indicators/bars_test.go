package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

func spreadContainer(t *testing.T) *frame.Container {
	t.Helper()
	c := frame.NewContainer()
	require.NoError(t, c.SetData(frame.Numbers(10.1, 11, 11), "High"))
	require.NoError(t, c.SetData(frame.Numbers(10, 10.9, 10.9), "Low"))
	return c
}

func TestCorwinSchultz(t *testing.T) {
	assert.InDelta(t, 0.406, corwinSchultz(10.1, 10, 11, 10.9), 1e-3)
	assert.Equal(t, 0.0, corwinSchultz(3, 1, 4, 2), "negative estimates clamp to zero")
	assert.True(t, math.IsNaN(corwinSchultz(1, 2, 3, 1)), "high below low")
	assert.True(t, math.IsNaN(corwinSchultz(nan, 1, 3, 1)))
}

func TestSpread(t *testing.T) {
	c := spreadContainer(t)
	require.NoError(t, Spread(c, "High", "Low", 1))
	col, err := c.Column("spread")
	require.NoError(t, err)
	got := frame.Floats(col)
	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 0.406, got[1], 1e-3)
	assert.Equal(t, 0.0, got[2])

	c = spreadContainer(t)
	require.NoError(t, Spread(c, "High", "Low", 2))
	col, err = c.Column("spread")
	require.NoError(t, err)
	got = frame.Floats(col)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 0.203, got[2], 1e-3)

	assert.ErrorIs(t, Spread(c, "High", "Low", 0), apperrors.ErrInvalidInput)
}

func TestLookupBar(t *testing.T) {
	assert.Equal(t, []string{"spread", "stochastic", "williams_r"}, BarNames())

	fn, ok := LookupBar("Stochastic")
	require.True(t, ok)
	c := hlcContainer(t)
	require.NoError(t, fn(c, SplitInputs("High, Low,Close"), "st", 2, 1))
	k, err := c.Column("st_k")
	require.NoError(t, err)
	assertSeries(t, []float64{nan, 200.0 / 3, 200.0 / 3}, frame.Floats(k))
	_, err = c.Column("st_d")
	require.NoError(t, err)

	fn, ok = LookupBar("williams_r")
	require.True(t, ok)
	err = fn(c, []string{"High", "Low"}, "wr")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	require.NoError(t, fn(c, []string{"High", "Low", "Close"}, "wr", 2))
	r, err := c.Column("wr")
	require.NoError(t, err)
	assertSeries(t, []float64{nan, -100.0 / 3, -100.0 / 3}, frame.Floats(r))

	_, ok = LookupBar("sma")
	assert.False(t, ok)
}
