package exporter

import (
	"encoding/json"
	"io"
	"math"

	"seriesframe/internal/config"
	"seriesframe/internal/frame"
)

// JSONWriter writes the column-major arrays of a table as one JSON object:
//
//	{"columns": ["Date", "Close"], "data": {"Date": [...], "Close": [...]}}
//
// NaN and infinities have no JSON form and are written as null.
type JSONWriter struct{}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

func (w *JSONWriter) Format() string    { return config.FormatJSON }
func (w *JSONWriter) Extension() string { return ".json" }

type jsonTable struct {
	Columns []string         `json:"columns"`
	Data    map[string][]any `json:"data"`
}

func (w *JSONWriter) Write(out io.Writer, t *frame.Table) error {
	arrays := ToArrays(t)
	for _, col := range arrays {
		for i := range col {
			col[i] = jsonSafe(col[i])
		}
	}
	columns := t.Columns
	if columns == nil {
		columns = []string{}
	}
	return json.NewEncoder(out).Encode(jsonTable{Columns: columns, Data: arrays})
}

func jsonSafe(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case []any:
		for i := range x {
			x[i] = jsonSafe(x[i])
		}
	}
	return v
}
