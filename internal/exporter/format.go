package exporter

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"seriesframe/internal/frame"
)

// formatFloat rounds f to precision decimal places and drops trailing
// zeros, so 13.40 is written as 13.4. NaN is written as an empty cell.
func formatFloat(f float64, precision int) string {
	switch {
	case math.IsNaN(f):
		return ""
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if precision < 0 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return decimal.NewFromFloat(f).Round(int32(precision)).String()
}

// formatTime writes dates at midnight UTC as 2006-01-02 and anything else
// as RFC 3339.
func formatTime(t time.Time) string {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.Format(time.DateOnly)
	}
	return u.Format(time.RFC3339)
}

// formatValue renders one cell for text formats
func formatValue(v frame.Value, precision int) string {
	switch v.Kind() {
	case frame.KindNull:
		return ""
	case frame.KindNumber:
		f, _ := v.Float()
		return formatFloat(f, precision)
	case frame.KindTime:
		t, _ := v.TimeValue()
		return formatTime(t)
	default:
		return v.String()
	}
}
