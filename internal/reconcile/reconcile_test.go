package reconcile

import (
	"testing"

	"receiving-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var widget = models.Product{Barcode: "123", SKU: "A1", Brand: "ACME", Name: "Widget"}

func TestAccepted(t *testing.T) {
	assert.Equal(t, 2, Accepted(5, 3))
	assert.Equal(t, 0, Accepted(3, 5))
	assert.Equal(t, 0, Accepted(0, 0))
	assert.Equal(t, 10, Accepted(10, 0))

	for r := 0; r <= 20; r++ {
		for j := 0; j <= 20; j++ {
			want := r - j
			if want < 0 {
				want = 0
			}
			assert.Equal(t, want, Accepted(r, j), "accepted(%d, %d)", r, j)
		}
	}
}

func TestLiveAccepted(t *testing.T) {
	tests := []struct {
		received string
		rejected string
		want     int
	}{
		{"10", "2", 8},
		{"", "", 0},
		{"abc", "2", 0},
		{"7", "", 7},
		{"7", "x", 7},
		{" 9 ", "4", 5},
		{"3", "5", 0},
		{"4.5", "1", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LiveAccepted(tt.received, tt.rejected), "live(%q, %q)", tt.received, tt.rejected)
	}
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity(models.FieldQtyReceived, "042")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = ParseQuantity(models.FieldQtyReceived, "2147483647")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, n)

	for _, bad := range []string{"", "-1", "+1", "1.0", "1e3", "ten", " 1", "2147483648", "3000000000", "99999999999999999999"} {
		_, err := ParseQuantity(models.FieldQtyReceived, bad)
		field, ok := models.ValidationField(err)
		require.True(t, ok, "input %q", bad)
		assert.Equal(t, models.FieldQtyReceived, field)
	}
}

func TestNormalizeExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"31/12/2025", "31/12/2025", false},
		{"1/2/2026", "01/02/2026", false},
		{"", "", false},
		{"2025-12-31", "", true},
		{"31/02/2025", "", true},
		{"12/31/2025", "", true},
		{"31/12/25", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeExpiry(tt.in)
		if tt.wantErr {
			field, ok := models.ValidationField(err)
			require.True(t, ok, "input %q", tt.in)
			assert.Equal(t, models.FieldExpiryDate, field)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestBuildRecord(t *testing.T) {
	record, err := BuildRecord(widget, Form{
		ImportNo:    "IMP-1",
		QtyReceived: "10",
		QtyRejected: "2",
		Lot:         "L7",
		ExpiryDate:  "31/12/2025",
		Notes:       "ok",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ImportRecord{
		ImportNo:    "IMP-1",
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
	}, record)
	assert.Equal(t, models.StatusHasRejections, record.Status())
}

func TestBuildRecordFieldClasses(t *testing.T) {
	valid := Form{ImportNo: "IMP-1", QtyReceived: "1", QtyRejected: "0"}

	tests := []struct {
		name    string
		product models.Product
		mutate  func(f *Form)
		field   string
	}{
		{"no product", models.Product{}, func(f *Form) {}, models.FieldProduct},
		{"received beyond column range", widget, func(f *Form) { f.QtyReceived = "3000000000" }, models.FieldQtyReceived},
		{"blank import no", widget, func(f *Form) { f.ImportNo = "  " }, models.FieldImportNo},
		{"signed received", widget, func(f *Form) { f.QtyReceived = "-1" }, models.FieldQtyReceived},
		{"decimal rejected", widget, func(f *Form) { f.QtyRejected = "0.5" }, models.FieldQtyRejected},
		{"empty rejected", widget, func(f *Form) { f.QtyRejected = "" }, models.FieldQtyRejected},
		{"bad expiry", widget, func(f *Form) { f.ExpiryDate = "tomorrow" }, models.FieldExpiryDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)
			_, err := BuildRecord(tt.product, form)
			field, ok := models.ValidationField(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
		})
	}
}

func TestCheckRecord(t *testing.T) {
	record, err := BuildRecord(widget, Form{ImportNo: "IMP-1", QtyReceived: "3", QtyRejected: "5"})
	require.NoError(t, err)
	assert.Equal(t, 0, record.QtyAccepted)
	assert.Equal(t, models.StatusHasRejections, record.Status())
	require.NoError(t, CheckRecord(record))

	tampered := record
	tampered.QtyAccepted = 4
	field, ok := models.ValidationField(CheckRecord(tampered))
	require.True(t, ok)
	assert.Equal(t, models.FieldQtyAccepted, field)

	oversized := record
	oversized.QtyReceived = MaxQuantity
	oversized.QtyReceived++
	oversized.QtyAccepted = Accepted(oversized.QtyReceived, oversized.QtyRejected)
	field, ok = models.ValidationField(CheckRecord(oversized))
	require.True(t, ok)
	assert.Equal(t, models.FieldQtyReceived, field)

	unpadded := record
	unpadded.ExpiryDate = "1/1/2026"
	field, ok = models.ValidationField(CheckRecord(unpadded))
	require.True(t, ok)
	assert.Equal(t, models.FieldExpiryDate, field)
}

func TestFormFromRecordRoundTrip(t *testing.T) {
	record, err := BuildRecord(widget, Form{ImportNo: "IMP-9", QtyReceived: "12", QtyRejected: "0", ExpiryDate: "05/06/2027"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFullyAccepted, record.Status())

	again, err := BuildRecord(Snapshot(record), FormFromRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, again)
}

func TestValidateProduct(t *testing.T) {
	p, err := ValidateProduct(models.Product{Barcode: " 123 ", SKU: "A1", Brand: "ACME", Name: "Widget"})
	require.NoError(t, err)
	assert.Equal(t, "123", p.Barcode)

	_, err = ValidateProduct(models.Product{Barcode: "123", SKU: "A1", Name: "Widget"})
	field, ok := models.ValidationField(err)
	require.True(t, ok)
	assert.Equal(t, models.FieldBrand, field)
}
