// Package dataprocessing turns source files into frame tables and cleans
// containers before export.
//
// # Loading
//
// LoadCSV and LoadXLSX infer each cell: empty cells are null, numbers may
// carry thousands separators, dates are tried against DefaultDateLayouts
// and anything else stays text.
//
//	table, err := dataprocessing.LoadXLSX("bars.xlsx", "")
//	coll, err := frame.Build(table, "Date", "Symbol")
//
// # Forward fill
//
// After a collection is padded onto a common time index, the padded rows
// can be filled with the last observed value:
//
//	padded := coll.PadTimeIndex(frame.Null())
//	p := dataprocessing.NewForwardFillProcessor(dataprocessing.DefaultOptions())
//	for _, m := range padded.Members() {
//	    if err := p.Process(m); err != nil { ... }
//	}
//
// ForwardFill is also a frame.TransformFunc for single columns.
//
// # Summaries
//
// Summarizer reduces each collection member to one CategorySummary row.
package dataprocessing
