package calculator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbatools/margin-scraper/internal/rowstore"
)

func TestBuildBatchExcludesHeader(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.SetColumn(1, []string{"ASIN", "B01ABC1234", "B09XYZ9876"})

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{Row: 2, ASIN: "B01ABC1234"},
		{Row: 3, ASIN: "B09XYZ9876"},
	}, batch)
}

func TestBuildBatchHeaderIsCaseInsensitive(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.SetColumn(1, []string{"  asin ", "B01ABC1234"})

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, batch, 1)
	assert.Equal(t, Item{Row: 2, ASIN: "B01ABC1234"}, batch[0])
}

func TestBuildBatchNoHeader(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.SetColumn(1, []string{"B01ABC1234", "B09XYZ9876"})

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)

	assert.Equal(t, []Item{
		{Row: 1, ASIN: "B01ABC1234"},
		{Row: 2, ASIN: "B09XYZ9876"},
	}, batch)
}

func TestBuildBatchKeepsBlankRowsAligned(t *testing.T) {
	store := rowstore.NewMemoryStore()
	store.SetColumn(1, []string{"ASIN", "B01ABC1234", "", "B09XYZ9876"})

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, batch, 3)
	assert.Equal(t, Item{Row: 3, ASIN: ""}, batch[1])
	assert.Equal(t, Item{Row: 4, ASIN: "B09XYZ9876"}, batch[2])
}

func TestBuildBatchEmptyColumn(t *testing.T) {
	store := rowstore.NewMemoryStore()

	batch, err := BuildBatch(context.Background(), store)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
