package exporter

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/ipc"
	"github.com/apache/arrow/go/v14/arrow/memory"

	"seriesframe/internal/config"
	"seriesframe/internal/frame"
)

// TimestampType is the Arrow type of time columns
var TimestampType = &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}

// ArrowWriter writes a table as a single record batch in the Arrow IPC
// stream format.
type ArrowWriter struct {
	mem memory.Allocator
}

// NewArrowWriter creates a writer; a nil allocator uses the Go allocator
func NewArrowWriter(mem memory.Allocator) *ArrowWriter {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ArrowWriter{mem: mem}
}

func (w *ArrowWriter) Format() string    { return config.FormatArrow }
func (w *ArrowWriter) Extension() string { return ".arrow" }

func (w *ArrowWriter) Write(out io.Writer, t *frame.Table) error {
	record, err := w.Record(t)
	if err != nil {
		return err
	}
	defer record.Release()

	writer := ipc.NewWriter(out, ipc.WithSchema(record.Schema()), ipc.WithAllocator(w.mem))
	if err := writer.Write(record); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write Arrow record: %w", err)
	}
	return writer.Close()
}

// Record converts t into one record batch. Column types are inferred from
// the cells: numbers become float64, times timestamp[ms], numeric lists
// list<float64> and anything else, including mixed columns, utf8.
// The caller must Release the record.
func (w *ArrowWriter) Record(t *frame.Table) (arrow.Record, error) {
	fields := make([]arrow.Field, len(t.Columns))
	cols := make([]arrow.Array, len(t.Columns))
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	for j, name := range t.Columns {
		values := make([]frame.Value, len(t.Rows))
		for i, row := range t.Rows {
			values[i] = row[j]
		}
		typ := inferArrowType(values)
		fields[j] = arrow.Field{Name: name, Type: typ, Nullable: true}
		arr, err := w.buildArray(typ, values)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		cols[j] = arr
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewRecord(schema, cols, int64(len(t.Rows))), nil
}

func inferArrowType(values []frame.Value) arrow.DataType {
	var kind frame.Kind
	numericLists := true
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if kind != frame.KindNull && v.Kind() != kind {
			return arrow.BinaryTypes.String
		}
		kind = v.Kind()
		if items, ok := v.Items(); ok {
			for _, it := range items {
				if it.Kind() != frame.KindNumber && !it.IsNull() {
					numericLists = false
				}
			}
		}
	}

	switch kind {
	case frame.KindNull, frame.KindNumber:
		return arrow.PrimitiveTypes.Float64
	case frame.KindTime:
		return TimestampType
	case frame.KindList:
		if numericLists {
			return arrow.ListOf(arrow.PrimitiveTypes.Float64)
		}
		return arrow.BinaryTypes.String
	default:
		return arrow.BinaryTypes.String
	}
}

func (w *ArrowWriter) buildArray(typ arrow.DataType, values []frame.Value) (arrow.Array, error) {
	switch typ.ID() {
	case arrow.FLOAT64:
		b := array.NewFloat64Builder(w.mem)
		defer b.Release()
		for _, v := range values {
			if f, ok := v.Float(); ok {
				b.Append(f)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil

	case arrow.TIMESTAMP:
		b := array.NewTimestampBuilder(w.mem, TimestampType)
		defer b.Release()
		for _, v := range values {
			if at, ok := v.TimeValue(); ok {
				b.Append(arrow.Timestamp(at.UnixMilli()))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil

	case arrow.LIST:
		b := array.NewListBuilder(w.mem, arrow.PrimitiveTypes.Float64)
		defer b.Release()
		vb := b.ValueBuilder().(*array.Float64Builder)
		for _, v := range values {
			items, ok := v.Items()
			if !ok {
				b.AppendNull()
				continue
			}
			b.Append(true)
			for _, it := range items {
				if f, ok := it.Float(); ok {
					vb.Append(f)
				} else {
					vb.AppendNull()
				}
			}
		}
		return b.NewArray(), nil

	case arrow.STRING:
		b := array.NewStringBuilder(w.mem)
		defer b.Release()
		for _, v := range values {
			if v.IsNull() {
				b.AppendNull()
				continue
			}
			if s, ok := v.Str(); ok {
				b.Append(s)
			} else {
				b.Append(formatValue(v, -1))
			}
		}
		return b.NewArray(), nil

	default:
		return nil, fmt.Errorf("unsupported arrow type %s", typ)
	}
}
