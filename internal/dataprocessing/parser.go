package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// DefaultDateLayouts are tried in order when a cell is not a number.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01-02-06", // excelize default date rendering
	"1/2/2006",
	"2006 01 02",
}

// LoadOptions controls how source cells are parsed.
type LoadOptions struct {
	// Comma is the CSV field delimiter. Zero means ','.
	Comma rune
	// DateLayouts overrides DefaultDateLayouts.
	DateLayouts []string
	// TextColumns are never converted to numbers or dates.
	TextColumns []string
	Logger      *slog.Logger
}

func (o LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o LoadOptions) layouts() []string {
	if len(o.DateLayouts) > 0 {
		return o.DateLayouts
	}
	return DefaultDateLayouts
}

// LoadCSV reads a CSV table whose first record is the header.
func LoadCSV(r io.Reader, opts LoadOptions) (*frame.Table, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, apperrors.NewParsingError(fmt.Sprintf("csv line %d", parseErr.Line), err)
		}
		return nil, apperrors.NewParsingError("failed to read csv", err)
	}
	if len(records) > 0 {
		records[0] = trimBOM(records[0])
	}

	t, err := tableFromRecords(records, opts)
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("csv loaded",
		slog.Int("columns", len(t.Columns)),
		slog.Int("rows", t.Len()))
	return t, nil
}

// LoadXLSX reads one sheet of a workbook. With an empty sheet name the
// first sheet holding a header and at least one data row is used. Rows
// above the header (titles, blank lines) are skipped.
func LoadXLSX(path, sheet string) (*frame.Table, error) {
	return LoadXLSXWithOptions(path, sheet, LoadOptions{})
}

// LoadXLSXWithOptions is LoadXLSX with explicit parse options.
func LoadXLSXWithOptions(path, sheet string, opts LoadOptions) (*frame.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	var rows [][]string
	if sheet != "" {
		rows, err = f.GetRows(sheet)
		if err != nil {
			return nil, apperrors.NewKeyNotFoundError("sheet", sheet)
		}
	} else {
		for _, name := range f.GetSheetList() {
			candidate, err := f.GetRows(name)
			if err != nil {
				continue
			}
			if header := headerRow(candidate); header >= 0 && header < len(candidate)-1 {
				rows, sheet = candidate, name
				break
			}
		}
		if sheet == "" {
			return nil, apperrors.NewParsingError("no sheet with tabular data", nil).WithContext("path", path)
		}
	}

	header := headerRow(rows)
	if header < 0 {
		return nil, apperrors.NewParsingError("sheet has no header row", nil).WithContext("sheet", sheet)
	}

	t, err := tableFromRecords(rows[header:], opts)
	if err != nil {
		return nil, err
	}
	opts.logger().Debug("workbook loaded",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("header_row", header),
		slog.Int("rows", t.Len()))
	return t, nil
}

// headerRow returns the index of the first row with at least two
// non-empty cells, or -1.
func headerRow(rows [][]string) int {
	for i, row := range rows {
		filled := 0
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				filled++
			}
		}
		if filled >= 2 {
			return i
		}
	}
	return -1
}

func tableFromRecords(records [][]string, opts LoadOptions) (*frame.Table, error) {
	if len(records) == 0 {
		return nil, apperrors.NewParsingError("source has no header", nil)
	}

	header := records[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	seen := make(map[string]bool, len(header))
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, apperrors.NewParsingError(fmt.Sprintf("duplicate column %q", name), nil)
		}
		seen[name] = true
		columns[i] = name
	}

	text := make(map[int]bool, len(opts.TextColumns))
	for _, name := range opts.TextColumns {
		for i, c := range columns {
			if c == name {
				text[i] = true
			}
		}
	}

	layouts := opts.layouts()
	t := &frame.Table{Columns: columns}
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		row := make([]frame.Value, len(columns))
		for i := range columns {
			if i >= len(record) {
				continue
			}
			if text[i] {
				if s := strings.TrimSpace(record[i]); s != "" {
					row[i] = frame.Text(s)
				}
				continue
			}
			row[i] = ParseCell(record[i], layouts)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseCell infers the value of a source cell. Empty cells are null,
// numbers may carry thousands separators, and anything that is neither a
// number nor a date in one of layouts stays text.
func ParseCell(raw string, layouts []string) frame.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return frame.Null()
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
		return frame.Number(f)
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return frame.Time(t)
		}
	}
	return frame.Text(s)
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimBOM(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return header
}
