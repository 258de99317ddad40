package exporter

import (
	"fmt"
	"math"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// ToArrays returns t column-major, keyed by column name. Numbers become
// float64 (NaN kept), text string, times time.Time, lists []any and nulls
// nil.
func ToArrays(t *frame.Table) map[string][]any {
	out := make(map[string][]any, len(t.Columns))
	for j, name := range t.Columns {
		col := make([]any, len(t.Rows))
		for i, row := range t.Rows {
			col[i] = nativeValue(row[j])
		}
		out[name] = col
	}
	return out
}

func nativeValue(v frame.Value) any {
	switch v.Kind() {
	case frame.KindNumber:
		f, _ := v.Float()
		return f
	case frame.KindText:
		s, _ := v.Str()
		return s
	case frame.KindTime:
		t, _ := v.TimeValue()
		return t
	case frame.KindList:
		items, _ := v.Items()
		out := make([]any, len(items))
		for i, it := range items {
			out[i] = nativeValue(it)
		}
		return out
	default:
		return nil
	}
}

// ToMatrix returns t row-major as float64s for numeric pipelines. Missing
// cells become NaN and times their Unix seconds; text and list cells are
// rejected.
func ToMatrix(t *frame.Table) ([][]float64, error) {
	out := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			switch v.Kind() {
			case frame.KindNull:
				out[i][j] = math.NaN()
			case frame.KindNumber:
				out[i][j], _ = v.Float()
			case frame.KindTime:
				at, _ := v.TimeValue()
				out[i][j] = float64(at.Unix())
			default:
				return nil, apperrors.NewInvalidInputError(
					fmt.Sprintf("column %s row %d holds %s, not a number", t.Columns[j], i, v.Kind()))
			}
		}
	}
	return out, nil
}
