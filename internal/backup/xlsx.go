package backup

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// WriteXLSX writes records as a single-sheet spreadsheet with the same
// "tipo, valor, data" columns as the TSV listing.
func WriteXLSX(w io.Writer, records []Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetRow(xlsxSheet, "A1", &[]any{"tipo", "valor", "data"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &[]any{r.Type, r.Value, formatDate(r)}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return nil
}
