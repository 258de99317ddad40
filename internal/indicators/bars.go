package indicators

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// BarFunc derives columns from several input columns of one member, such as
// High, Low and Close. The result is stored under output, or under output
// plus a suffix when the indicator has more than one result.
type BarFunc func(c *frame.Container, inputs []string, output string, args ...int) error

var barRegistry = map[string]struct {
	inputs int
	fn     BarFunc
}{
	"stochastic": {3, stochasticBars},
	"williams_r": {3, williamsRBars},
	"spread":     {2, spreadBars},
}

// LookupBar returns the multi-column indicator registered under name.
func LookupBar(name string) (BarFunc, bool) {
	entry, ok := barRegistry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return func(c *frame.Container, inputs []string, output string, args ...int) error {
		if len(inputs) != entry.inputs {
			return apperrors.NewInvalidInputError(
				fmt.Sprintf("%s needs %d input columns, got %d", name, entry.inputs, len(inputs)))
		}
		return entry.fn(c, inputs, output, args...)
	}, true
}

// BarNames lists the multi-column indicators in sorted order.
func BarNames() []string {
	names := make([]string, 0, len(barRegistry))
	for name := range barRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitInputs parses a comma separated column list such as "High,Low,Close".
func SplitInputs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func stochasticBars(c *frame.Container, in []string, output string, args ...int) error {
	k, d := argOr(args, 0, DefaultStochasticK), argOr(args, 1, DefaultStochasticD)
	return stochastic(c, in[0], in[1], in[2], k, d, output+"_k", output+"_d")
}

func williamsRBars(c *frame.Container, in []string, output string, args ...int) error {
	return williamsR(c, in[0], in[1], in[2], argOr(args, 0, DefaultWilliamsRLen), output)
}

func spreadBars(c *frame.Container, in []string, output string, args ...int) error {
	return spread(c, in[0], in[1], argOr(args, 0, DefaultSpreadWindow), output)
}

func argOr(args []int, i, def int) int {
	if i < len(args) {
		return args[i]
	}
	return def
}

// Spread stores the Corwin-Schultz high-low bid-ask spread estimate as the
// data column spread on c. Each two-day estimate is averaged over window
// estimates; the first row has no estimate.
func Spread(c *frame.Container, high, low string, window int) error {
	return spread(c, high, low, window, "spread")
}

func spread(c *frame.Container, high, low string, window int, output string) error {
	if window < 1 {
		return apperrors.NewInvalidInputError("spread window must be positive")
	}
	cols := make([][]float64, 2)
	for i, name := range []string{high, low} {
		col, err := c.Column(name)
		if err != nil {
			return err
		}
		cols[i] = frame.Floats(col)
	}
	hs, ls := cols[0], cols[1]

	pairs := nans(len(hs))
	for i := 1; i < len(hs); i++ {
		pairs[i] = corwinSchultz(hs[i-1], ls[i-1], hs[i], ls[i])
	}

	out := nans(len(hs))
	for i := window; i < len(hs); i++ {
		var sum float64
		var n int
		for _, s := range pairs[i-window+1 : i+1] {
			if !math.IsNaN(s) {
				sum += s
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return c.SetData(values(out), output)
}

// corwinSchultz estimates the spread from the highs and lows of two
// consecutive days as a fraction of price, clamped to [0, 1]. Invalid
// prices give NaN.
func corwinSchultz(high1, low1, high2, low2 float64) float64 {
	for _, p := range []float64{high1, low1, high2, low2} {
		if math.IsNaN(p) || p <= 0 {
			return math.NaN()
		}
	}
	if high1 < low1 || high2 < low2 {
		return math.NaN()
	}

	beta := math.Log(high1/low1) + math.Log(high2/low2)
	gamma := math.Log(math.Max(high1, high2) / math.Min(low1, low2))
	if beta <= 0 || gamma <= 0 {
		return 0
	}

	k := 3 - 2*math.Sqrt2
	alpha := (math.Sqrt2-1)*math.Sqrt(gamma)/k - math.Sqrt(beta/k)
	switch {
	case alpha > 10:
		return 1
	case alpha < -10:
		return 0
	}
	e := math.Exp(alpha)
	return math.Min(math.Max(2*(e-1)/(1+e), 0), 1)
}
