package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for barcode and record lookups that match nothing
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the wipe passphrase does not match
	ErrUnauthorized = errors.New("unauthorized")

	// ErrResourceUnavailable is returned when the scan device cannot be opened
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrNothingToExport is returned by exporters given zero rows
	ErrNothingToExport = errors.New("nothing to export")

	// ErrIOFailure wraps export write failures
	ErrIOFailure = errors.New("io failure")
)

// Field classes reported by ValidationError
const (
	FieldProduct     = "product"
	FieldBarcode     = "barcode"
	FieldSKU         = "sku"
	FieldBrand       = "brand"
	FieldName        = "name"
	FieldImportNo    = "import_no"
	FieldQtyReceived = "qty_received"
	FieldQtyRejected = "qty_rejected"
	FieldQtyAccepted = "qty_accepted"
	FieldExpiryDate  = "expiry_date"
	FieldRecord      = "record"
)

// ValidationError reports the failing field class of a rejected input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ValidationField returns the failing field class if err is a ValidationError
func ValidationField(err error) (string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Field, true
	}
	return "", false
}
