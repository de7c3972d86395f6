package rowstore

import (
	"context"
	"sync"
)

type cellKey struct {
	Row    int
	Column int
}

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	columns map[int][]string
	cells   map[cellKey]string
	rows    [][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		columns: make(map[int][]string),
		cells:   make(map[cellKey]string),
	}
}

// SetColumn seeds the initial content of a column.
func (m *MemoryStore) SetColumn(column int, values []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns[column] = append([]string(nil), values...)
}

func (m *MemoryStore) ReadColumn(_ context.Context, column int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.columns[column]...), nil
}

func (m *MemoryStore) WriteCell(_ context.Context, row, column int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[cellKey{Row: row, Column: column}] = value
	return nil
}

func (m *MemoryStore) AppendRow(_ context.Context, values []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, append([]string(nil), values...))
	return nil
}

// Cell returns the value written to (row, column), if any.
func (m *MemoryStore) Cell(row, column int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.cells[cellKey{Row: row, Column: column}]
	return v, ok
}

// WriteCount returns the number of distinct cells written so far.
func (m *MemoryStore) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cells)
}

// AppendedRows returns all rows added via AppendRow.
func (m *MemoryStore) AppendedRows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.rows...)
}
