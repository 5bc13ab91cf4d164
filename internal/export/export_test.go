package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"

	"receiving-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var records = []models.ImportRecord{
	{ID: 1, ImportNo: "IMP-1", SKU: "A1", Brand: "ACME", ProductName: "Widget", Barcode: "123", Lot: "L7", ExpiryDate: "31/12/2025", QtyReceived: 10, QtyRejected: 2, QtyAccepted: 8, Notes: "ok"},
	{ID: 2, ImportNo: "IMP-2", SKU: "B2", Brand: "ACME", ProductName: "Gadget", Barcode: "456", QtyReceived: 5, QtyRejected: 0, QtyAccepted: 5},
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "imports.csv", f.FileName())

	_, err = ParseFormat("pdf")
	_, ok := models.ValidationField(err)
	assert.True(t, ok)
}

func TestNothingToExport(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteXLSX(&buf, nil), models.ErrNothingToExport)
	assert.ErrorIs(t, WriteCSV(&buf, []models.ImportRecord{}), models.ErrNothingToExport)
	assert.Zero(t, buf.Len())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ExportColumns, rows[0])
	assert.Equal(t, []string{"IMP-1", "A1", "ACME", "Widget", "123", "L7", "31/12/2025", "10", "2", "8", "ok"}, rows[1])
	assert.Equal(t, []string{"IMP-2", "B2", "ACME", "Gadget", "456", "", "", "5", "0", "5", ""}, rows[2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.ExportColumns, rows[0])
	assert.Equal(t, []string{"IMP-1", "A1", "ACME", "Widget", "123", "L7", "31/12/2025", "10", "2", "8", "ok"}, rows[1])
	assert.Equal(t, "IMP-2", rows[2][0])
	assert.Equal(t, "5", rows[2][9])
}

func TestWriteFailureIsIOFailure(t *testing.T) {
	assert.ErrorIs(t, WriteXLSX(failingWriter{}, records), models.ErrIOFailure)
	assert.ErrorIs(t, WriteCSV(failingWriter{}, records), models.ErrIOFailure)
}
