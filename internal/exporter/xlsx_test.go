package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter("").Write(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())

	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Date", "Close", "Symbol"}, rows[0])
	assert.Equal(t, "AAA", rows[1][2])
	assert.Equal(t, "", rows[2][1], "NaN is an empty cell")
	assert.Equal(t, "5", rows[3][1])
	assert.Equal(t, "B,B", rows[3][2])

	raw, err := f.GetCellValue(DefaultSheetName, "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "10.123456", raw)

	date, err := f.GetCellValue(DefaultSheetName, "A2")
	require.NoError(t, err)
	assert.Contains(t, date, "2024-01-01")
}

func TestXLSXWriter_SheetName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter("Prices").Write(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Prices"}, f.GetSheetList())
}
