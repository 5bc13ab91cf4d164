// Package reconcile holds the rules that turn a receiving form into a ledger
// record: quantity parsing, the accepted-quantity derivation and expiry date
// normalisation. Every write path goes through these functions.
package reconcile

import (
	"math"
	"strconv"
	"strings"
	"time"

	"receiving-service/internal/models"
)

const (
	// ExpiryLayout is the canonical day/month/year rendering of expiry dates
	ExpiryLayout = "02/01/2006"

	// expiryParseLayout also admits single digit day and month
	expiryParseLayout = "2/1/2006"

	// MaxQuantity is the largest quantity the ledger columns hold
	MaxQuantity = math.MaxInt32
)

// Form carries the raw, user-typed fields of a receiving entry
type Form struct {
	ImportNo    string `json:"import_no"`
	QtyReceived string `json:"qty_received"`
	QtyRejected string `json:"qty_rejected"`
	Lot         string `json:"lot"`
	ExpiryDate  string `json:"expiry_date"`
	Notes       string `json:"notes"`
}

// Accepted derives the accepted quantity, floored at zero
func Accepted(received, rejected int) int {
	if accepted := received - rejected; accepted > 0 {
		return accepted
	}
	return 0
}

// LiveAccepted echoes Accepted while the form is being typed.
// Input that does not parse as an integer counts as zero.
func LiveAccepted(received, rejected string) int {
	return Accepted(lenientInt(received), lenientInt(rejected))
}

func lenientInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// ParseQuantity accepts only a non-empty run of ASCII digits
func ParseQuantity(field, s string) (int, error) {
	if s == "" {
		return 0, models.NewValidationError(field, "quantity is required")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, models.NewValidationError(field, "quantity must be a whole number")
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxQuantity {
		return 0, models.NewValidationError(field, "quantity is out of range")
	}
	return n, nil
}

// NormalizeExpiry parses an optional day/month/year date and renders it in ExpiryLayout.
// An empty input stays empty.
func NormalizeExpiry(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(expiryParseLayout, s)
	if err != nil {
		return "", models.NewValidationError(models.FieldExpiryDate, "expiry date must be dd/mm/yyyy")
	}
	return t.Format(ExpiryLayout), nil
}

// BuildRecord validates form against the product snapshot and returns a record
// with its accepted quantity derived. No field is partially applied on failure.
func BuildRecord(snapshot models.Product, form Form) (models.ImportRecord, error) {
	if !complete(snapshot) {
		return models.ImportRecord{}, models.NewValidationError(models.FieldProduct, "no product resolved")
	}

	importNo := strings.TrimSpace(form.ImportNo)
	if importNo == "" {
		return models.ImportRecord{}, models.NewValidationError(models.FieldImportNo, "import number is required")
	}

	received, err := ParseQuantity(models.FieldQtyReceived, strings.TrimSpace(form.QtyReceived))
	if err != nil {
		return models.ImportRecord{}, err
	}
	rejected, err := ParseQuantity(models.FieldQtyRejected, strings.TrimSpace(form.QtyRejected))
	if err != nil {
		return models.ImportRecord{}, err
	}

	expiry, err := NormalizeExpiry(strings.TrimSpace(form.ExpiryDate))
	if err != nil {
		return models.ImportRecord{}, err
	}

	return models.ImportRecord{
		ImportNo:    importNo,
		SKU:         snapshot.SKU,
		Brand:       snapshot.Brand,
		ProductName: snapshot.Name,
		Barcode:     snapshot.Barcode,
		Lot:         strings.TrimSpace(form.Lot),
		ExpiryDate:  expiry,
		QtyReceived: received,
		QtyRejected: rejected,
		QtyAccepted: Accepted(received, rejected),
		Notes:       strings.TrimSpace(form.Notes),
	}, nil
}

// CheckRecord re-validates a record handed directly to the ledger
func CheckRecord(r models.ImportRecord) error {
	if !complete(Snapshot(r)) {
		return models.NewValidationError(models.FieldProduct, "product snapshot is incomplete")
	}
	if strings.TrimSpace(r.ImportNo) == "" {
		return models.NewValidationError(models.FieldImportNo, "import number is required")
	}
	if r.QtyReceived < 0 || r.QtyReceived > MaxQuantity {
		return models.NewValidationError(models.FieldQtyReceived, "quantity is out of range")
	}
	if r.QtyRejected < 0 || r.QtyRejected > MaxQuantity {
		return models.NewValidationError(models.FieldQtyRejected, "quantity is out of range")
	}
	if r.QtyAccepted != Accepted(r.QtyReceived, r.QtyRejected) {
		return models.NewValidationError(models.FieldQtyAccepted, "accepted quantity does not match received minus rejected")
	}
	if r.ExpiryDate != "" {
		normalized, err := NormalizeExpiry(r.ExpiryDate)
		if err != nil {
			return err
		}
		if normalized != r.ExpiryDate {
			return models.NewValidationError(models.FieldExpiryDate, "expiry date must be dd/mm/yyyy")
		}
	}
	return nil
}

// Snapshot returns the product attributes copied into a record
func Snapshot(r models.ImportRecord) models.Product {
	return models.Product{
		Barcode: r.Barcode,
		SKU:     r.SKU,
		Brand:   r.Brand,
		Name:    r.ProductName,
	}
}

// FormFromRecord renders a stored record back into form fields
func FormFromRecord(r models.ImportRecord) Form {
	return Form{
		ImportNo:    r.ImportNo,
		QtyReceived: strconv.Itoa(r.QtyReceived),
		QtyRejected: strconv.Itoa(r.QtyRejected),
		Lot:         r.Lot,
		ExpiryDate:  r.ExpiryDate,
		Notes:       r.Notes,
	}
}

// ValidateProduct checks the fields required to add or edit a catalog entry
func ValidateProduct(p models.Product) (models.Product, error) {
	p = models.Product{
		Barcode: strings.TrimSpace(p.Barcode),
		SKU:     strings.TrimSpace(p.SKU),
		Brand:   strings.TrimSpace(p.Brand),
		Name:    strings.TrimSpace(p.Name),
	}
	switch {
	case p.Barcode == "":
		return p, models.NewValidationError(models.FieldBarcode, "barcode is required")
	case p.SKU == "":
		return p, models.NewValidationError(models.FieldSKU, "sku is required")
	case p.Brand == "":
		return p, models.NewValidationError(models.FieldBrand, "brand is required")
	case p.Name == "":
		return p, models.NewValidationError(models.FieldName, "name is required")
	}
	return p, nil
}

func complete(p models.Product) bool {
	return p.Barcode != "" && p.SKU != "" && p.Brand != "" && p.Name != ""
}
