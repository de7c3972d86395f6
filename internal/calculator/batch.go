package calculator

import (
	"context"
	"fmt"
	"strings"

	"github.com/fbatools/margin-scraper/internal/rowstore"
)

// Item pairs an identifier with the 1-based row it was read from, which
// is also the row its margin is written back to.
type Item struct {
	Row  int
	ASIN string
}

// BuildBatch reads column 1 of the store and pairs every value with its
// row. A first value that case-insensitively equals "asin" is a header:
// it is excluded and all row indices start at 2 instead of 1. Empty
// values are kept so row indices stay aligned; the driver skips them.
func BuildBatch(ctx context.Context, store rowstore.Store) ([]Item, error) {
	values, err := store.ReadColumn(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read identifier column: %w", err)
	}

	startRow := 1
	if len(values) > 0 && strings.EqualFold(strings.TrimSpace(values[0]), "asin") {
		values = values[1:]
		startRow = 2
	}

	items := make([]Item, 0, len(values))
	for i, v := range values {
		items = append(items, Item{Row: startRow + i, ASIN: v})
	}

	return items, nil
}
