package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"seriesframe/internal/config"
	"seriesframe/internal/frame"
)

// DefaultSheetName names the single worksheet of an XLSX export
const DefaultSheetName = "Data"

// XLSXWriter writes a table into one worksheet with a bold header row
type XLSXWriter struct {
	sheet string
}

// NewXLSXWriter creates a writer; an empty sheet name means DefaultSheetName
func NewXLSXWriter(sheet string) *XLSXWriter {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &XLSXWriter{sheet: sheet}
}

func (w *XLSXWriter) Format() string    { return config.FormatXLSX }
func (w *XLSXWriter) Extension() string { return ".xlsx" }

func (w *XLSXWriter) Write(out io.Writer, t *frame.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	dateFormat := "yyyy-mm-dd hh:mm:ss"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, name := range t.Columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = xlsxCell(v, dateStyle)
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(ref, cells); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(out)
}

// xlsxCell maps a value to a cell. Missing numbers stay empty.
func xlsxCell(v frame.Value, dateStyle int) interface{} {
	switch v.Kind() {
	case frame.KindNull:
		return nil
	case frame.KindNumber:
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			return nil
		case math.IsInf(f, 0):
			return formatFloat(f, -1)
		}
		return f
	case frame.KindText:
		s, _ := v.Str()
		return s
	case frame.KindTime:
		t, _ := v.TimeValue()
		return excelize.Cell{StyleID: dateStyle, Value: t.UTC()}
	default:
		return v.String()
	}
}
