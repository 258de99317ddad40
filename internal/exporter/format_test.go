package exporter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seriesframe/internal/frame"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name      string
		input     float64
		precision int
		expected  string
	}{
		{
			name:      "zero value",
			input:     0.0,
			precision: 6,
			expected:  "0",
		},
		{
			name:      "positive integer",
			input:     123.0,
			precision: 6,
			expected:  "123",
		},
		{
			name:      "negative integer",
			input:     -456.0,
			precision: 6,
			expected:  "-456",
		},
		{
			name:      "positive decimal with trailing zeros",
			input:     123.456000,
			precision: 6,
			expected:  "123.456",
		},
		{
			name:      "small negative decimal",
			input:     -0.005678,
			precision: 6,
			expected:  "-0.005678",
		},
		{
			name:      "very small positive number",
			input:     0.000001,
			precision: 6,
			expected:  "0.000001",
		},
		{
			name:      "large positive number",
			input:     1234567.890123,
			precision: 6,
			expected:  "1234567.890123",
		},
		{
			name:      "rounded to two places",
			input:     13.456,
			precision: 2,
			expected:  "13.46",
		},
		{
			name:      "trailing zero dropped after rounding",
			input:     13.4,
			precision: 2,
			expected:  "13.4",
		},
		{
			name:      "rounded below precision",
			input:     0.0000004,
			precision: 6,
			expected:  "0",
		},
		{
			name:      "full precision",
			input:     0.1 + 0.2,
			precision: -1,
			expected:  "0.30000000000000004",
		},
		{
			name:      "nan",
			input:     math.NaN(),
			precision: 2,
			expected:  "",
		},
		{
			name:      "positive infinity",
			input:     math.Inf(1),
			precision: 2,
			expected:  "inf",
		},
		{
			name:      "negative infinity",
			input:     math.Inf(-1),
			precision: 2,
			expected:  "-inf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatFloat(tt.input, tt.precision))
		})
	}
}

func TestFormatValue(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		input    frame.Value
		expected string
	}{
		{name: "null", input: frame.Null(), expected: ""},
		{name: "number", input: frame.Number(2.5), expected: "2.5"},
		{name: "text", input: frame.Text("AAPL"), expected: "AAPL"},
		{name: "date", input: frame.Time(day), expected: "2024-01-02"},
		{name: "timestamp", input: frame.Time(day.Add(90 * time.Minute)), expected: "2024-01-02T01:30:00Z"},
		{name: "list", input: frame.List(frame.Number(1), frame.Number(2)), expected: "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input, 4))
		})
	}
}
