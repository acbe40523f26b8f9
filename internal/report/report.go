// Package report renders inventory records as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/opname/internal/inventory"
	"github.com/erazemk/opname/internal/model"
)

// Sheet names.
const (
	SheetInventory = "Inventory"
	SheetSummary   = "Summary"
)

var inventoryHeader = []any{
	"Inventory ID", "QR code", "Item", "Brand", "Category",
	"Location", "Sub-location", "Condition", "Created", "Updated",
}

// Write renders records and their summary as a workbook.
func Write(w io.Writer, records []model.Record, generated time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetInventory); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := writeRecords(f, records); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}
	if err := writeSummary(f, inventory.Summarize(records), generated); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// Filename returns the download name for a report generated at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("opname_%s.xlsx", t.Format("20060102_150405"))
}

func writeRecords(f *excelize.File, records []model.Record) error {
	if err := f.SetSheetRow(SheetInventory, "A1", &inventoryHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		row := []any{
			rec.InventoryID,
			rec.QRCode,
			rec.ItemName,
			rec.Brand,
			rec.Category,
			rec.Location,
			rec.SubLocation,
			string(rec.Condition),
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(SheetInventory, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(SheetInventory, "A", "J", 18); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, s inventory.Summary, generated time.Time) error {
	rows := [][]any{
		{"Generated", generated.UTC().Format(time.RFC3339)},
		{"Total", s.Total},
		{},
		{"Condition", "Count"},
	}
	for _, c := range model.Conditions {
		rows = append(rows, []any{string(c), s.ByCondition[c]})
	}

	categories := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	rows = append(rows, []any{}, []any{"Category", "Count"})
	for _, name := range categories {
		rows = append(rows, []any{name, s.ByCategory[name]})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing summary row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(SheetSummary, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	return nil
}
