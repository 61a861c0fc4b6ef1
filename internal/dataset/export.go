package dataset

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pharma-dashboard/internal/models"
)

const exportSheet = "filtered_sales"

func exportRecord(tx models.Transaction, l Layout) []string {
	rec := []string{tx.Period.Compact(), tx.Representative, tx.Client}
	if l.ProductGroup {
		rec = append(rec, tx.ProductGroup)
	}
	rec = append(rec, tx.Product)
	if l.Quantity {
		rec = append(rec, FormatQuantity(tx.Quantity))
	}
	return append(rec, tx.Revenue.String())
}

// WriteCSV writes rows in the upload format with a UTF-8 byte order mark so
// spreadsheet programs keep the Korean text intact. The output can be
// uploaded again.
func WriteCSV(w io.Writer, rows []models.Transaction, l Layout) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(l.Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range rows {
		if err := cw.Write(exportRecord(tx, l)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows as a single-sheet workbook. Quantity and revenue are
// stored as numbers.
func WriteXLSX(w io.Writer, rows []models.Transaction, l Layout) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := l.Headers()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for r, tx := range rows {
		values := []any{tx.Period.Compact(), tx.Representative, tx.Client}
		if l.ProductGroup {
			values = append(values, tx.ProductGroup)
		}
		values = append(values, tx.Product)
		if l.Quantity {
			values = append(values, tx.Quantity)
		}
		values = append(values, tx.Revenue.InexactFloat64())

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "G", 16); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
