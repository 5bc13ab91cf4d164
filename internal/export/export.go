// Package export writes the import ledger as a spreadsheet
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"receiving-service/internal/models"

	"github.com/jszwec/csvutil"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

const sheetName = "Imports"

// ParseFormat accepts xlsx or csv, case-insensitively; empty means xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", models.NewValidationError("format", fmt.Sprintf("unsupported export format %q", s))
}

// ContentType returns the MIME type of f
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns the download name for an export in f
func (f Format) FileName() string {
	return "imports." + string(f)
}

// Write dispatches to WriteXLSX or WriteCSV
func Write(w io.Writer, f Format, records []models.ImportRecord) error {
	if f == FormatCSV {
		return WriteCSV(w, records)
	}
	return WriteXLSX(w, records)
}

// WriteXLSX writes a workbook with a header row and one row per record.
// Rows with rejections are shaded. Zero records is ErrNothingToExport and nothing is written.
func WriteXLSX(w io.Writer, records []models.ImportRecord) error {
	if len(records) == 0 {
		return models.ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(models.ExportColumns))
	for i, col := range models.ExportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	rejectStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#F8D7DA"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create row style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(models.ExportColumns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range records {
		rowNum := i + 2
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := r.Row()
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
		if r.Status() == models.StatusHasRejections {
			end := fmt.Sprintf("%s%d", lastCol, rowNum)
			if err := f.SetCellStyle(sheetName, cell, end, rejectStyle); err != nil {
				return fmt.Errorf("failed to style row %d: %w", rowNum, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w: %w", models.ErrIOFailure, err)
	}
	return nil
}

// WriteCSV writes a header row and one row per record.
// Zero records is ErrNothingToExport and nothing is written.
func WriteCSV(w io.Writer, records []models.ImportRecord) error {
	if len(records) == 0 {
		return models.ErrNothingToExport
	}

	cw := csv.NewWriter(w)
	if err := csvutil.NewEncoder(cw).Encode(records); err != nil {
		return fmt.Errorf("failed to encode csv: %w: %w", models.ErrIOFailure, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w: %w", models.ErrIOFailure, err)
	}
	return nil
}
