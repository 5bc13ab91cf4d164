package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"receiving-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const importColumns = `id, import_no, sku, brand, product_name, barcode, lot, expiry_date,
	qty_received, qty_rejected, qty_accepted, notes`

// ListImports retrieves every import record in insertion order
func (s *Store) ListImports(ctx context.Context) ([]models.ImportRecord, error) {
	records := []models.ImportRecord{}
	err := s.db.SelectContext(ctx, &records,
		"SELECT "+importColumns+" FROM import_records ORDER BY id")
	return records, err
}

// GetImport retrieves an import record by id
func (s *Store) GetImport(ctx context.Context, id int64) (*models.ImportRecord, error) {
	var record models.ImportRecord
	err := s.db.GetContext(ctx, &record,
		"SELECT "+importColumns+" FROM import_records WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import record %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// AppendImport inserts a new import record and sets its store-assigned id
func (s *Store) AppendImport(ctx context.Context, record *models.ImportRecord) error {
	query := `
		INSERT INTO import_records (
			import_no, sku, brand, product_name, barcode, lot, expiry_date,
			qty_received, qty_rejected, qty_accepted, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	return s.db.GetContext(ctx, &record.ID, query,
		record.ImportNo, record.SKU, record.Brand, record.ProductName, record.Barcode,
		record.Lot, record.ExpiryDate, record.QtyReceived, record.QtyRejected,
		record.QtyAccepted, record.Notes)
}

// UpdateImport replaces every field of the record with the given id
func (s *Store) UpdateImport(ctx context.Context, record models.ImportRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_records SET
			import_no = $1, sku = $2, brand = $3, product_name = $4, barcode = $5,
			lot = $6, expiry_date = $7, qty_received = $8, qty_rejected = $9,
			qty_accepted = $10, notes = $11
		WHERE id = $12`,
		record.ImportNo, record.SKU, record.Brand, record.ProductName, record.Barcode,
		record.Lot, record.ExpiryDate, record.QtyReceived, record.QtyRejected,
		record.QtyAccepted, record.Notes, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update import record: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("import record %d", record.ID))
}

// DeleteImport removes exactly one import record
func (s *Store) DeleteImport(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM import_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete import record: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("import record %d", id))
}

// deleteAllImports empties the ledger; only WipeAll calls it
func deleteAllImports(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM import_records")
	if err != nil {
		return 0, fmt.Errorf("failed to delete import records: %w", err)
	}
	return res.RowsAffected()
}
