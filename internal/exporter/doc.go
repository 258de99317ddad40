// Package exporter encodes the flat tables produced by frame's MakeTable.
//
// Writers exist for CSV (optional UTF-8 BOM for Excel, decimal rounding),
// XLSX (one worksheet), Arrow IPC (one record batch) and JSON (column-major
// arrays). ToArrays and ToMatrix hand the same tables to in-memory
// consumers without going through a file.
//
// Example usage:
//
//	exp, err := coll.MakeTable(frame.ExportOptions{ExpandCategory: true, Policy: frame.PolicyPad})
//	if err != nil {
//		return err
//	}
//	w, err := exporter.NewWriter("csv", exporter.Options{Precision: 4, BOM: true})
//	if err != nil {
//		return err
//	}
//	files, err := exporter.ExportFiles("exports", "prices", exp, w)
package exporter
