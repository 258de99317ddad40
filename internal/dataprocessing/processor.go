package dataprocessing

import (
	"fmt"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// ForwardFill replaces missing cells with the last observed value.
// Leading missing cells stay missing. args: optional max consecutive fills
// (int, 0 = unlimited).
func ForwardFill(column []frame.Value, args ...any) (frame.Output, error) {
	limit := 0
	if len(args) > 0 {
		n, ok := args[0].(int)
		if !ok || n < 0 {
			return frame.Output{}, apperrors.NewInvalidInputError(
				fmt.Sprintf("forward fill limit must be a non-negative int, got %v", args[0]))
		}
		limit = n
	}
	filled, _ := forwardFill(column, limit)
	return frame.Sequence(filled), nil
}

func forwardFill(column []frame.Value, limit int) ([]frame.Value, int) {
	out := make([]frame.Value, len(column))
	var last frame.Value
	have, run, count := false, 0, 0
	for i, v := range column {
		if !v.IsMissing() {
			out[i], last, have, run = v, v, true, 0
			continue
		}
		out[i] = v
		if have && (limit == 0 || run < limit) {
			out[i] = last
			run++
			count++
		}
	}
	return out, count
}

// ForwardFillProcessor fills gaps in every data column of a container,
// typically after padding a collection onto a common time index.
type ForwardFillProcessor struct {
	opts ProcessingOptions
}

// NewForwardFillProcessor creates a new forward-fill processor
func NewForwardFillProcessor(opts ProcessingOptions) *ForwardFillProcessor {
	return &ForwardFillProcessor{opts: opts}
}

// Process implements Processor.
func (f *ForwardFillProcessor) Process(c *frame.Container) error {
	_, err := f.ProcessWithStats(c)
	return err
}

// ProcessWithStats fills c in place and reports what changed.
func (f *ForwardFillProcessor) ProcessWithStats(c *frame.Container) (ForwardFillStatistics, error) {
	stats := ForwardFillStatistics{Rows: c.Len()}
	if !f.opts.EnableForwardFill {
		return stats, nil
	}

	columns := c.DataNames()
	if len(f.opts.Columns) > 0 {
		columns = f.opts.Columns
	}
	for _, name := range columns {
		col, err := c.Column(name)
		if err != nil {
			return stats, err
		}
		filled, n := forwardFill(col, f.opts.MaxFill)
		if n == 0 {
			continue
		}
		if err := c.SetData(filled, name); err != nil {
			return stats, err
		}
		stats.ColumnsFilled++
		stats.CellsFilled += n
	}
	return stats, nil
}

// ForwardFillStatistics represents forward-fill operation statistics
type ForwardFillStatistics struct {
	Rows          int
	ColumnsFilled int
	CellsFilled   int
}
