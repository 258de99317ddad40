package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"seriesframe/internal/config"
	"seriesframe/internal/frame"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables as comma separated text with a header row
type CSVWriter struct {
	precision int
	bom       bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(precision int, bom bool) *CSVWriter {
	return &CSVWriter{precision: precision, bom: bom}
}

func (w *CSVWriter) Format() string    { return config.FormatCSV }
func (w *CSVWriter) Extension() string { return ".csv" }

// Write writes the header and every row of t
func (w *CSVWriter) Write(out io.Writer, t *frame.Table) error {
	stream, err := w.NewStreamWriter(out, t.Columns)
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := stream.WriteRow(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return stream.Flush()
}

// StreamWriter writes rows one at a time for large exports
type StreamWriter struct {
	writer    *csv.Writer
	precision int
	record    []string
}

// NewStreamWriter writes the optional BOM and the header, then returns a
// writer for the rows.
func (w *CSVWriter) NewStreamWriter(out io.Writer, headers []string) (*StreamWriter, error) {
	// Write BOM if requested (helps Excel recognize UTF-8)
	if w.bom {
		if _, err := out.Write(utf8BOM); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer, precision: w.precision}, nil
}

// WriteRow formats and writes a single row
func (s *StreamWriter) WriteRow(row []frame.Value) error {
	s.record = s.record[:0]
	for _, v := range row {
		s.record = append(s.record, formatValue(v, s.precision))
	}
	return s.writer.Write(s.record)
}

// Flush flushes buffered rows and reports any write error
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}
