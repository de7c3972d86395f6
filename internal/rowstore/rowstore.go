package rowstore

import (
	"context"
)

// Store is a two-dimensional labeled table addressed by 1-based row and
// column indices. It doubles as the input ASIN list (column reads) and the
// output ledger (single-cell writes).
type Store interface {
	// ReadColumn returns the values of a column, top row first.
	ReadColumn(ctx context.Context, column int) ([]string, error)
	// WriteCell overwrites a single cell. Writes are idempotent.
	WriteCell(ctx context.Context, row, column int, value string) error
}

// Appender extends a Store with whole-row appends below the last
// populated row. The search scraper uses it to add new listings.
type Appender interface {
	AppendRow(ctx context.Context, values []string) error
}
