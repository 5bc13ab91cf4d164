package store

import (
	"context"
	"os"
	"testing"

	"receiving-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresStore(t *testing.T) Repository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))
	_, err = s.WipeAll(ctx)
	require.NoError(t, err)
	return s
}

func TestMemoryStore(t *testing.T) {
	runRepositoryTests(t, func(t *testing.T) Repository { return NewMemoryStore() })
}

func TestPostgresStore(t *testing.T) {
	runRepositoryTests(t, newPostgresStore)
}

func runRepositoryTests(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Run("duplicate create is ignored", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		outcome, err := repo.CreateProduct(ctx, models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeCreated, outcome)

		outcome, err = repo.CreateProduct(ctx, models.Product{Barcode: "123", SKU: "B2", Brand: "Other", Name: "Gadget"})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeIgnored, outcome)

		product, err := repo.GetProduct(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}, *product)
	})

	t.Run("update missing product", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.UpdateProduct(ctx, models.Product{Barcode: "404", SKU: "X", Brand: "Y", Name: "Z"})
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = repo.GetProduct(ctx, "404")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("update existing product", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreateProduct(ctx, models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateProduct(ctx, models.Product{Barcode: "123", SKU: "A2", Brand: "ACME", Name: "Widget XL"}))

		product, err := repo.GetProduct(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "A2", product.SKU)
		assert.Equal(t, "Widget XL", product.Name)
	})

	t.Run("ledger update and delete keep order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var ids []int64
		for _, no := range []string{"IMP-1", "IMP-2", "IMP-3"} {
			record := sampleRecord(no)
			require.NoError(t, repo.AppendImport(ctx, &record))
			require.NotZero(t, record.ID)
			ids = append(ids, record.ID)
		}

		before, err := repo.ListImports(ctx)
		require.NoError(t, err)
		require.Len(t, before, 3)

		replacement := sampleRecord("IMP-2b")
		replacement.ID = ids[1]
		replacement.QtyReceived, replacement.QtyRejected, replacement.QtyAccepted = 4, 4, 0
		require.NoError(t, repo.UpdateImport(ctx, replacement))

		after, err := repo.ListImports(ctx)
		require.NoError(t, err)
		require.Len(t, after, 3)
		assert.Equal(t, before[0], after[0])
		assert.Equal(t, replacement, after[1])
		assert.Equal(t, before[2], after[2])

		require.NoError(t, repo.DeleteImport(ctx, ids[0]))
		remaining, err := repo.ListImports(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.ImportRecord{after[1], after[2]}, remaining)

		assert.ErrorIs(t, repo.DeleteImport(ctx, ids[0]), models.ErrNotFound)
		missing := sampleRecord("IMP-X")
		missing.ID = ids[0]
		assert.ErrorIs(t, repo.UpdateImport(ctx, missing), models.ErrNotFound)
		_, err = repo.GetImport(ctx, ids[0])
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("wipe clears both tables", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.CreateProduct(ctx, models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"})
		require.NoError(t, err)
		record := sampleRecord("IMP-1")
		require.NoError(t, repo.AppendImport(ctx, &record))

		res, err := repo.WipeAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, WipeResult{Products: 1, Records: 1}, res)

		records, err := repo.ListImports(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
		_, err = repo.GetProduct(ctx, "123")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestMemoryStoreNeverReusesIDs(t *testing.T) {
	repo := NewMemoryStore()
	ctx := context.Background()

	first := sampleRecord("IMP-1")
	require.NoError(t, repo.AppendImport(ctx, &first))
	require.NoError(t, repo.DeleteImport(ctx, first.ID))

	second := sampleRecord("IMP-2")
	require.NoError(t, repo.AppendImport(ctx, &second))
	assert.Greater(t, second.ID, first.ID)
}

func sampleRecord(importNo string) models.ImportRecord {
	return models.ImportRecord{
		ImportNo:    importNo,
		SKU:         "A1",
		Brand:       "ACME",
		ProductName: "Widget",
		Barcode:     "123",
		Lot:         "L7",
		ExpiryDate:  "31/12/2025",
		QtyReceived: 10,
		QtyRejected: 2,
		QtyAccepted: 8,
		Notes:       "ok",
	}
}

func TestOpen(t *testing.T) {
	repo, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)
	assert.NoError(t, repo.Ping(context.Background()))

	_, err = Open("sqlite", "")
	assert.Error(t, err)
}
