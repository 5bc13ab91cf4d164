package store

import (
	"context"
	"fmt"
	"time"

	"receiving-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Repository is the persistence port shared by the Postgres and in-memory stores
type Repository interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	GetProduct(ctx context.Context, barcode string) (*models.Product, error)
	CreateProduct(ctx context.Context, product models.Product) (models.CreateOutcome, error)
	UpdateProduct(ctx context.Context, product models.Product) error

	ListImports(ctx context.Context) ([]models.ImportRecord, error)
	GetImport(ctx context.Context, id int64) (*models.ImportRecord, error)
	AppendImport(ctx context.Context, record *models.ImportRecord) error
	UpdateImport(ctx context.Context, record models.ImportRecord) error
	DeleteImport(ctx context.Context, id int64) error

	WipeAll(ctx context.Context) (WipeResult, error)
}

// WipeResult counts the rows removed by WipeAll
type WipeResult struct {
	Products int64
	Records  int64
}

type Store struct {
	db *sqlx.DB
}

var _ Repository = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	barcode TEXT PRIMARY KEY,
	sku     TEXT NOT NULL DEFAULT '',
	brand   TEXT NOT NULL DEFAULT '',
	name    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS import_records (
	id           BIGSERIAL PRIMARY KEY,
	import_no    TEXT NOT NULL,
	sku          TEXT NOT NULL DEFAULT '',
	brand        TEXT NOT NULL DEFAULT '',
	product_name TEXT NOT NULL DEFAULT '',
	barcode      TEXT NOT NULL DEFAULT '',
	lot          TEXT NOT NULL DEFAULT '',
	expiry_date  TEXT NOT NULL DEFAULT '',
	qty_received INTEGER NOT NULL CHECK (qty_received >= 0),
	qty_rejected INTEGER NOT NULL CHECK (qty_rejected >= 0),
	qty_accepted INTEGER NOT NULL CHECK (qty_accepted >= 0),
	notes        TEXT NOT NULL DEFAULT ''
);`

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Open returns the repository for driver, "postgres" or "memory"
func Open(driver, databaseURL string) (Repository, error) {
	switch driver {
	case "postgres":
		s, err := NewStore(databaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the products and import_records tables if absent
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// WipeAll clears every product and every import record in one transaction
func (s *Store) WipeAll(ctx context.Context) (WipeResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return WipeResult{}, err
	}
	defer tx.Rollback()

	records, err := deleteAllImports(ctx, tx)
	if err != nil {
		return WipeResult{}, err
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM products")
	if err != nil {
		return WipeResult{}, fmt.Errorf("failed to delete products: %w", err)
	}
	products, err := res.RowsAffected()
	if err != nil {
		return WipeResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return WipeResult{}, fmt.Errorf("failed to commit wipe: %w", err)
	}

	return WipeResult{Products: products, Records: records}, nil
}
