package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"
)

// ExcelWorkbook stores all sheets in a single xlsx file on disk. Every
// operation opens the file, applies the change, and saves; the mutex keeps
// concurrent file access from corrupting the workbook.
type ExcelWorkbook struct {
	path string
	mu   sync.Mutex
}

func NewExcelWorkbook(path string) *ExcelWorkbook {
	return &ExcelWorkbook{path: path}
}

// Init creates the workbook if it does not exist and makes sure every known
// sheet is present with its header row.
func (w *ExcelWorkbook) Init(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, created, err := w.open()
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	for _, sheet := range []string{AttendanceSheet, LeaveSheet, ZoneSheet} {
		idx, err := file.GetSheetIndex(sheet)
		if err != nil {
			return fmt.Errorf("init workbook: %w", err)
		}
		if idx < 0 {
			if _, err := file.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			if err := setRow(file, sheet, 1, sheetHeaders[sheet]); err != nil {
				return fmt.Errorf("write header for %s: %w", sheet, err)
			}
		}
	}
	if created {
		// Drop the default sheet the library creates with a new file.
		if idx, err := file.GetSheetIndex("Sheet1"); err == nil && idx >= 0 {
			_ = file.DeleteSheet("Sheet1")
		}
		return file.SaveAs(w.path)
	}
	return file.Save()
}

func (w *ExcelWorkbook) Rows(ctx context.Context, sheet string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.openExisting()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (w *ExcelWorkbook) AppendRow(ctx context.Context, sheet string, row []string) error {
	return w.mutate(sheet, func(file *excelize.File, rows [][]string) error {
		return setRow(file, sheet, len(rows)+1, row)
	})
}

func (w *ExcelWorkbook) UpdateRow(ctx context.Context, sheet string, index int, row []string) error {
	return w.mutate(sheet, func(file *excelize.File, rows [][]string) error {
		if index < 1 || index > len(rows) {
			return fmt.Errorf("update sheet %s: row %d out of range", sheet, index)
		}
		return setRow(file, sheet, index, row)
	})
}

func (w *ExcelWorkbook) DeleteRow(ctx context.Context, sheet string, index int) error {
	return w.mutate(sheet, func(file *excelize.File, rows [][]string) error {
		if index < 1 || index > len(rows) {
			return fmt.Errorf("delete sheet %s: row %d out of range", sheet, index)
		}
		return file.RemoveRow(sheet, index)
	})
}

// Snapshot writes an xz-compressed copy of the workbook file for backups.
func (w *ExcelWorkbook) Snapshot(out io.Writer) error {
	w.mu.Lock()
	data, err := os.ReadFile(w.path)
	w.mu.Unlock()
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}

	compressor, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("start snapshot: %w", err)
	}
	if _, err := compressor.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("finish snapshot: %w", err)
	}
	return nil
}

func (w *ExcelWorkbook) mutate(sheet string, apply func(file *excelize.File, rows [][]string) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := w.openExisting()
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	rows, err := file.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if err := apply(file, rows); err != nil {
		return err
	}
	return file.Save()
}

func (w *ExcelWorkbook) open() (*excelize.File, bool, error) {
	file, err := excelize.OpenFile(w.path)
	if err == nil {
		return file, false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("open workbook %s: %w", w.path, err)
}

func (w *ExcelWorkbook) openExisting() (*excelize.File, error) {
	file, created, err := w.open()
	if err != nil {
		return nil, err
	}
	if created {
		_ = file.Close()
		return nil, fmt.Errorf("workbook %s does not exist (run setup or Init first)", w.path)
	}
	return file, nil
}

func setRow(file *excelize.File, sheet string, index int, row []string) error {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return file.SetSheetRow(sheet, fmt.Sprintf("A%d", index), &cells)
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
