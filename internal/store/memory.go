package store

import (
	"context"
	"fmt"
	"sync"

	"receiving-service/internal/models"
)

// MemoryStore keeps products and import records in process memory.
// Records are kept in insertion order; ids are never reused.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	records  []models.ImportRecord
	nextID   int64
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]models.Product)}
}

func (m *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) GetProduct(ctx context.Context, barcode string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	product, ok := m.products[barcode]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", barcode, models.ErrNotFound)
	}
	return &product, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, product models.Product) (models.CreateOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[product.Barcode]; exists {
		return models.OutcomeIgnored, nil
	}
	m.products[product.Barcode] = product
	return models.OutcomeCreated, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, product models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[product.Barcode]; !exists {
		return fmt.Errorf("product %s: %w", product.Barcode, models.ErrNotFound)
	}
	m.products[product.Barcode] = product
	return nil
}

func (m *MemoryStore) ListImports(ctx context.Context) ([]models.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ImportRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *MemoryStore) GetImport(ctx context.Context, id int64) (*models.ImportRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("import record %d: %w", id, models.ErrNotFound)
	}
	record := m.records[i]
	return &record, nil
}

func (m *MemoryStore) AppendImport(ctx context.Context, record *models.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	record.ID = m.nextID
	m.records = append(m.records, *record)
	return nil
}

func (m *MemoryStore) UpdateImport(ctx context.Context, record models.ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(record.ID)
	if i < 0 {
		return fmt.Errorf("import record %d: %w", record.ID, models.ErrNotFound)
	}
	m.records[i] = record
	return nil
}

func (m *MemoryStore) DeleteImport(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return fmt.Errorf("import record %d: %w", id, models.ErrNotFound)
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	return nil
}

func (m *MemoryStore) WipeAll(ctx context.Context) (WipeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := WipeResult{Products: int64(len(m.products)), Records: int64(len(m.records))}
	m.products = make(map[string]models.Product)
	m.records = nil
	return res, nil
}

func (m *MemoryStore) indexOf(id int64) int {
	for i := range m.records {
		if m.records[i].ID == id {
			return i
		}
	}
	return -1
}
