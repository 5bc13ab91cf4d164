package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"receiving-service/internal/models"
)

// GetProduct retrieves a product by barcode
func (s *Store) GetProduct(ctx context.Context, barcode string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT barcode, sku, brand, name FROM products WHERE barcode = $1", barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", barcode, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a product; an existing barcode is left untouched
func (s *Store) CreateProduct(ctx context.Context, product models.Product) (models.CreateOutcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (barcode, sku, brand, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (barcode) DO NOTHING`,
		product.Barcode, product.SKU, product.Brand, product.Name)
	if err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return models.OutcomeIgnored, nil
	}
	return models.OutcomeCreated, nil
}

// UpdateProduct rewrites sku, brand and name of an existing barcode
func (s *Store) UpdateProduct(ctx context.Context, product models.Product) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE products SET sku = $1, brand = $2, name = $3 WHERE barcode = $4",
		product.SKU, product.Brand, product.Name, product.Barcode)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectOneRow(res, "product "+product.Barcode)
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}
