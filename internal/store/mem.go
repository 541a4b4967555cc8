package store

import (
	"context"
	"fmt"
	"sync"
)

// MemWorkbook is an in-memory Workbook used by tests and by anything that
// wants ledger semantics without a file on disk. It mirrors the 1-based,
// header-inclusive row addressing of the xlsx backend.
type MemWorkbook struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

func NewMemWorkbook() *MemWorkbook {
	sheets := make(map[string][][]string, len(sheetHeaders))
	for name, header := range sheetHeaders {
		sheets[name] = [][]string{append([]string(nil), header...)}
	}
	return &MemWorkbook{sheets: sheets}
}

func (m *MemWorkbook) Rows(ctx context.Context, sheet string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, fmt.Errorf("unknown sheet %s", sheet)
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (m *MemWorkbook) AppendRow(ctx context.Context, sheet string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("unknown sheet %s", sheet)
	}
	m.sheets[sheet] = append(rows, append([]string(nil), row...))
	return nil
}

func (m *MemWorkbook) UpdateRow(ctx context.Context, sheet string, index int, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("unknown sheet %s", sheet)
	}
	if index < 1 || index > len(rows) {
		return fmt.Errorf("update sheet %s: row %d out of range", sheet, index)
	}
	rows[index-1] = append([]string(nil), row...)
	return nil
}

func (m *MemWorkbook) DeleteRow(ctx context.Context, sheet string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.sheets[sheet]
	if !ok {
		return fmt.Errorf("unknown sheet %s", sheet)
	}
	if index < 1 || index > len(rows) {
		return fmt.Errorf("delete sheet %s: row %d out of range", sheet, index)
	}
	m.sheets[sheet] = append(rows[:index-1], rows[index:]...)
	return nil
}
