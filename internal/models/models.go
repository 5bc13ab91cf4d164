package models

import "strconv"

// Product represents a catalog entry keyed by its barcode
type Product struct {
	Barcode string `db:"barcode" json:"barcode" csv:"barcode"`
	SKU     string `db:"sku" json:"sku" csv:"sku"`
	Brand   string `db:"brand" json:"brand" csv:"brand"`
	Name    string `db:"name" json:"name" csv:"name"`
}

// ImportRecord represents one goods-receiving transaction.
// SKU, Brand, ProductName and Barcode are a copy of the product taken at commit time.
type ImportRecord struct {
	ID          int64  `db:"id" json:"record_id" csv:"-"`
	ImportNo    string `db:"import_no" json:"import_no" csv:"Import No"`
	SKU         string `db:"sku" json:"sku" csv:"SKU"`
	Brand       string `db:"brand" json:"brand" csv:"Brand"`
	ProductName string `db:"product_name" json:"product_name" csv:"Product"`
	Barcode     string `db:"barcode" json:"barcode" csv:"Barcode"`
	Lot         string `db:"lot" json:"lot" csv:"Lot"`
	ExpiryDate  string `db:"expiry_date" json:"expiry_date" csv:"Expiry Date"`
	QtyReceived int    `db:"qty_received" json:"qty_received" csv:"Qty Received"`
	QtyRejected int    `db:"qty_rejected" json:"qty_rejected" csv:"Qty Rejected"`
	QtyAccepted int    `db:"qty_accepted" json:"qty_accepted" csv:"Qty Accepted"`
	Notes       string `db:"notes" json:"notes" csv:"Notes"`
}

// RecordStatus drives row highlighting; it is never stored
type RecordStatus string

const (
	StatusFullyAccepted RecordStatus = "FULLY_ACCEPTED"
	StatusHasRejections RecordStatus = "HAS_REJECTIONS"
)

// Status reports whether any quantity of the record was rejected
func (r ImportRecord) Status() RecordStatus {
	if r.QtyRejected == 0 {
		return StatusFullyAccepted
	}
	return StatusHasRejections
}

// ExportColumns is the fixed column order of the bulk export; it matches the csv tags above
var ExportColumns = []string{
	"Import No",
	"SKU",
	"Brand",
	"Product",
	"Barcode",
	"Lot",
	"Expiry Date",
	"Qty Received",
	"Qty Rejected",
	"Qty Accepted",
	"Notes",
}

// Row flattens the record in ExportColumns order
func (r ImportRecord) Row() []interface{} {
	return []interface{}{
		r.ImportNo,
		r.SKU,
		r.Brand,
		r.ProductName,
		r.Barcode,
		r.Lot,
		r.ExpiryDate,
		r.QtyReceived,
		r.QtyRejected,
		r.QtyAccepted,
		r.Notes,
	}
}

// ListedRecord is a ledger row as returned to clients, with its status flag
type ListedRecord struct {
	ImportRecord
	Status RecordStatus `json:"status"`
}

// WithStatus decorates records with their status flag
func WithStatus(records []ImportRecord) []ListedRecord {
	out := make([]ListedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, ListedRecord{ImportRecord: r, Status: r.Status()})
	}
	return out
}

// CreateOutcome distinguishes a fresh insert from an ignored duplicate
type CreateOutcome string

const (
	OutcomeCreated CreateOutcome = "CREATED"
	OutcomeIgnored CreateOutcome = "IGNORED"
)

// FormatRecordID renders a record id for event keys and logs
func FormatRecordID(id int64) string {
	return strconv.FormatInt(id, 10)
}
