package exporter

import (
	"fmt"
	"io"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/frame"
)

// Writer encodes a flat table into one output format.
type Writer interface {
	Format() string
	Extension() string
	Write(w io.Writer, t *frame.Table) error
}

// Options configures the writers NewWriter builds.
type Options struct {
	// Precision is the number of decimal places in text formats; negative
	// keeps full precision.
	Precision int
	// BOM prefixes CSV output with a UTF-8 byte order mark for Excel.
	BOM       bool
	SheetName string
}

// OptionsFrom reads writer options from the export configuration.
func OptionsFrom(cfg config.ExportConfig) Options {
	return Options{Precision: cfg.Precision, BOM: cfg.WriteBOM}
}

// NewWriter returns the writer for format.
func NewWriter(format string, opts Options) (Writer, error) {
	switch format {
	case config.FormatCSV:
		return NewCSVWriter(opts.Precision, opts.BOM), nil
	case config.FormatXLSX:
		return NewXLSXWriter(opts.SheetName), nil
	case config.FormatArrow:
		return NewArrowWriter(nil), nil
	case config.FormatJSON:
		return NewJSONWriter(), nil
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown export format %q", format))
	}
}
