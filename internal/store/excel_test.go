package store

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

func newTestWorkbook(t *testing.T) *ExcelWorkbook {
	t.Helper()
	wb := NewExcelWorkbook(filepath.Join(t.TempDir(), "registro.xlsx"))
	require.NoError(t, wb.Init(context.Background()))
	return wb
}

func TestInitCreatesSheetsWithHeaders(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	for sheet, header := range sheetHeaders {
		rows, err := wb.Rows(ctx, sheet)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, header, rows[0])
	}
}

func TestInitIsIdempotent(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	require.NoError(t, wb.AppendRow(ctx, AttendanceSheet, []string{"01.03.2025", "Mario Rossi | 42", "08:55", "Ufficio Centrale", "", ""}))
	require.NoError(t, wb.Init(ctx))

	rows, err := wb.Rows(ctx, AttendanceSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "reinit must not wipe existing data")
}

func TestAppendAndUpdateRow(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	require.NoError(t, wb.AppendRow(ctx, AttendanceSheet, []string{"01.03.2025", "Mario Rossi | 42", "08:55", "Ufficio Centrale", "", ""}))
	require.NoError(t, wb.UpdateRow(ctx, AttendanceSheet, 2, []string{"01.03.2025", "Mario Rossi | 42", "08:55", "Ufficio Centrale", "17:31", "Ufficio Centrale"}))

	rows, err := wb.Rows(ctx, AttendanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "17:31", Cell(rows[1], 4))
	assert.Equal(t, "Ufficio Centrale", Cell(rows[1], 5))
}

func TestUpdateRowOutOfRange(t *testing.T) {
	wb := newTestWorkbook(t)
	err := wb.UpdateRow(context.Background(), AttendanceSheet, 9, []string{"x"})
	require.Error(t, err)
}

func TestDeleteRow(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()

	require.NoError(t, wb.AppendRow(ctx, ZoneSheet, []string{"Magazzino", "45.1", "9.1", "200"}))
	require.NoError(t, wb.AppendRow(ctx, ZoneSheet, []string{"Cantiere", "45.2", "9.2", "300"}))
	require.NoError(t, wb.DeleteRow(ctx, ZoneSheet, 2))

	rows, err := wb.Rows(ctx, ZoneSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cantiere", Cell(rows[1], 0))
}

func TestRowsFailsBeforeInit(t *testing.T) {
	wb := NewExcelWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	_, err := wb.Rows(context.Background(), AttendanceSheet)
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	wb := newTestWorkbook(t)
	ctx := context.Background()
	require.NoError(t, wb.AppendRow(ctx, ZoneSheet, []string{"Magazzino", "45.1", "9.1", "200"}))

	var buf bytes.Buffer
	require.NoError(t, wb.Snapshot(&buf))

	decompressor, err := xz.NewReader(&buf)
	require.NoError(t, err)
	raw, err := io.ReadAll(decompressor)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer func() { _ = file.Close() }()
	rows, err := file.GetRows(ZoneSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Magazzino", rows[1][0])
}

func TestCellToleratesShortRows(t *testing.T) {
	row := []string{"01.03.2025", "Mario Rossi | 42", " 08:55 "}
	assert.Equal(t, "08:55", Cell(row, 2))
	assert.Equal(t, "", Cell(row, 4))
	assert.Equal(t, "", Cell(row, -1))
}

func TestLoadSheetRowsXLSX(t *testing.T) {
	file := excelize.NewFile()
	require.NoError(t, file.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Latitude", "Longitude", "RadiusMeters"}))
	require.NoError(t, file.SetSheetRow("Sheet1", "A2", &[]interface{}{"Magazzino", 45.1, 9.1, 250}))
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))

	rows, err := LoadSheetRows("zones.xlsx", &buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Magazzino", rows[1][0])
}

func TestLoadSheetRowsEmptyInput(t *testing.T) {
	_, err := LoadSheetRows("zones.xlsx", bytes.NewReader(nil))
	require.Error(t, err)
}
