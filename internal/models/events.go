package models

import "time"

// Event types
const (
	EventTypeProductCreated = "PRODUCT_CREATED"
	EventTypeProductUpdated = "PRODUCT_UPDATED"
	EventTypeImportRecorded = "IMPORT_RECORDED"
	EventTypeImportUpdated  = "IMPORT_UPDATED"
	EventTypeImportDeleted  = "IMPORT_DELETED"
	EventTypeCatalogWiped   = "CATALOG_WIPED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductEvent published when a product is created or edited
type ProductEvent struct {
	BaseEvent
	Product Product `json:"product"`
}

// ImportEvent published when a ledger record is appended or replaced
type ImportEvent struct {
	BaseEvent
	Record ImportRecord `json:"record"`
}

// ImportDeletedEvent published when a ledger record is removed
type ImportDeletedEvent struct {
	BaseEvent
	RecordID int64 `json:"record_id"`
}

// CatalogWipedEvent published after products and records were cleared together
type CatalogWipedEvent struct {
	BaseEvent
	ProductsRemoved int64 `json:"products_removed"`
	RecordsRemoved  int64 `json:"records_removed"`
}
