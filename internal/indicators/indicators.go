package indicators

import (
	"fmt"
	"math"
	"sort"
	"strings"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// Default parameters used when a transform is called without arguments.
const (
	DefaultWindow       = 20
	DefaultRSIPeriod    = 14
	DefaultMACDFast     = 12
	DefaultMACDSlow     = 26
	DefaultMACDSignal   = 9
	DefaultStochasticK  = 14
	DefaultStochasticD  = 3
	DefaultWilliamsRLen = 14
	DefaultSpreadWindow = 20
)

var registry = map[string]frame.TransformFunc{
	"sma":  SMA,
	"ema":  EMA,
	"macd": MACD,
	"rsi":  RSI,
}

// Lookup returns the column transform registered under name.
func Lookup(name string) (frame.TransformFunc, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperrors.NewKeyNotFoundError("indicator", name)
	}
	return fn, nil
}

// Names lists the registered column transforms in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SMA is the simple moving average. args: window (int).
func SMA(column []frame.Value, args ...any) (frame.Output, error) {
	window, err := intArg(args, 0, DefaultWindow)
	if err != nil {
		return frame.Output{}, err
	}
	return frame.Sequence(values(sma(frame.Floats(column), window))), nil
}

// EMA is the exponential moving average seeded with the SMA of the first
// span observations. args: span (int).
func EMA(column []frame.Value, args ...any) (frame.Output, error) {
	span, err := intArg(args, 0, DefaultWindow)
	if err != nil {
		return frame.Output{}, err
	}
	return frame.Sequence(values(ema(frame.Floats(column), span))), nil
}

// MACD returns the mapping macd, signal and hist.
// args: fast, slow, signal (ints).
func MACD(column []frame.Value, args ...any) (frame.Output, error) {
	fast, err := intArg(args, 0, DefaultMACDFast)
	if err != nil {
		return frame.Output{}, err
	}
	slow, err := intArg(args, 1, DefaultMACDSlow)
	if err != nil {
		return frame.Output{}, err
	}
	signalSpan, err := intArg(args, 2, DefaultMACDSignal)
	if err != nil {
		return frame.Output{}, err
	}
	if fast >= slow {
		return frame.Output{}, apperrors.NewInvalidInputError(
			fmt.Sprintf("macd fast span %d must be below slow span %d", fast, slow))
	}

	xs := frame.Floats(column)
	fastEMA, slowEMA := ema(xs, fast), ema(xs, slow)
	line := make([]float64, len(xs))
	for i := range xs {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	signal := ema(line, signalSpan)
	hist := make([]float64, len(xs))
	for i := range xs {
		hist[i] = line[i] - signal[i]
	}

	return frame.Mapping(
		frame.NamedColumn{Name: "macd", Values: values(line)},
		frame.NamedColumn{Name: "signal", Values: values(signal)},
		frame.NamedColumn{Name: "hist", Values: values(hist)},
	), nil
}

// RSI is the relative strength index with Wilder smoothing.
// args: period (int).
func RSI(column []frame.Value, args ...any) (frame.Output, error) {
	period, err := intArg(args, 0, DefaultRSIPeriod)
	if err != nil {
		return frame.Output{}, err
	}
	xs := frame.Floats(column)
	out := nans(len(xs))
	if len(xs) <= period {
		return frame.Sequence(values(out)), nil
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := change(xs[i-1], xs[i])
		gain += g
		loss += l
	}
	gain /= float64(period)
	loss /= float64(period)
	out[period] = rsi(gain, loss)

	for i := period + 1; i < len(xs); i++ {
		g, l := change(xs[i-1], xs[i])
		gain = (gain*float64(period-1) + g) / float64(period)
		loss = (loss*float64(period-1) + l) / float64(period)
		out[i] = rsi(gain, loss)
	}
	return frame.Sequence(values(out)), nil
}

// Stochastic stores the stochastic oscillator as data columns stoch_k and
// stoch_d on c.
func Stochastic(c *frame.Container, high, low, close string, k, d int) error {
	return stochastic(c, high, low, close, k, d, "stoch_k", "stoch_d")
}

func stochastic(c *frame.Container, high, low, close string, k, d int, kName, dName string) error {
	if k < 1 || d < 1 {
		return apperrors.NewInvalidInputError("stochastic periods must be positive")
	}
	hs, ls, cs, err := hlc(c, high, low, close)
	if err != nil {
		return err
	}

	pctK := nans(len(cs))
	for i := k - 1; i < len(cs); i++ {
		hh, ll := extremes(hs[i-k+1:i+1], ls[i-k+1:i+1])
		if hh == ll {
			continue
		}
		pctK[i] = 100 * (cs[i] - ll) / (hh - ll)
	}
	pctD := sma(pctK, d)

	if err := c.SetData(values(pctK), kName); err != nil {
		return err
	}
	return c.SetData(values(pctD), dName)
}

// WilliamsR stores Williams %R as the data column williams_r on c.
func WilliamsR(c *frame.Container, high, low, close string, period int) error {
	return williamsR(c, high, low, close, period, "williams_r")
}

func williamsR(c *frame.Container, high, low, close string, period int, output string) error {
	if period < 1 {
		return apperrors.NewInvalidInputError("williams %r period must be positive")
	}
	hs, ls, cs, err := hlc(c, high, low, close)
	if err != nil {
		return err
	}

	out := nans(len(cs))
	for i := period - 1; i < len(cs); i++ {
		hh, ll := extremes(hs[i-period+1:i+1], ls[i-period+1:i+1])
		if hh == ll {
			continue
		}
		out[i] = -100 * (hh - cs[i]) / (hh - ll)
	}
	return c.SetData(values(out), output)
}

func hlc(c *frame.Container, high, low, close string) (hs, ls, cs []float64, err error) {
	cols := make([][]float64, 3)
	for i, name := range []string{high, low, close} {
		col, err := c.Column(name)
		if err != nil {
			return nil, nil, nil, err
		}
		cols[i] = frame.Floats(col)
	}
	return cols[0], cols[1], cols[2], nil
}

func extremes(hs, ls []float64) (hh, ll float64) {
	hh, ll = math.Inf(-1), math.Inf(1)
	for i := range hs {
		if math.IsNaN(hs[i]) || math.IsNaN(ls[i]) {
			return math.NaN(), math.NaN()
		}
		hh = math.Max(hh, hs[i])
		ll = math.Min(ll, ls[i])
	}
	return hh, ll
}

func sma(xs []float64, window int) []float64 {
	out := nans(len(xs))
	if window < 1 {
		return out
	}
	for i := window - 1; i < len(xs); i++ {
		sum := 0.0
		for _, x := range xs[i-window+1 : i+1] {
			sum += x
		}
		out[i] = sum / float64(window)
	}
	return out
}

// ema skips leading NaNs and seeds at the first full window. A NaN after
// the seed yields NaN for that row without resetting the average.
func ema(xs []float64, span int) []float64 {
	out := nans(len(xs))
	start := 0
	for start < len(xs) && math.IsNaN(xs[start]) {
		start++
	}
	seed := start + span - 1
	if span < 1 || seed >= len(xs) {
		return out
	}

	sum := 0.0
	for _, x := range xs[start : seed+1] {
		sum += x
	}
	prev := sum / float64(span)
	out[seed] = prev

	alpha := 2.0 / (float64(span) + 1.0)
	for i := seed + 1; i < len(xs); i++ {
		if math.IsNaN(xs[i]) {
			continue
		}
		prev = alpha*xs[i] + (1-alpha)*prev
		out[i] = prev
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsi(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

func intArg(args []any, i, def int) (int, error) {
	if i >= len(args) || args[i] == nil {
		return def, nil
	}
	var n int
	switch v := args[i].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) {
			return 0, apperrors.NewInvalidInputError(fmt.Sprintf("argument %d must be an integer, got %v", i, v))
		}
		n = int(v)
	default:
		return 0, apperrors.NewInvalidInputError(fmt.Sprintf("argument %d must be an integer, got %T", i, v))
	}
	if n < 1 {
		return 0, apperrors.NewInvalidInputError(fmt.Sprintf("argument %d must be positive, got %d", i, n))
	}
	return n, nil
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func values(xs []float64) []frame.Value {
	return frame.Numbers(xs...)
}
