package report

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/opname/internal/model"
)

func TestWrite(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []model.Record{
		{InventoryID: "INV-001", QRCode: "QR-001", ItemName: "Laptop", Brand: "Dell", Category: "Electronics",
			Location: "HQ", SubLocation: "Room 2", Condition: model.ConditionGood, CreatedAt: created, UpdatedAt: created},
		{InventoryID: "INV-002", QRCode: "INV-002", ItemName: "Chair", Brand: "Ikea", Category: "Furniture",
			Location: "HQ", SubLocation: "Lobby", Condition: model.ConditionDamaged, CreatedAt: created, UpdatedAt: created},
	}

	var buf bytes.Buffer
	if err := Write(&buf, records, created); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{SheetInventory, SheetSummary}) {
		t.Errorf("expected sheets [Inventory Summary], got %v", got)
	}

	rows, err := f.GetRows(SheetInventory)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Inventory ID" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	want := []string{"INV-002", "INV-002", "Chair", "Ikea", "Furniture", "HQ", "Lobby", "damaged",
		"2024-03-01T09:00:00Z", "2024-03-01T09:00:00Z"}
	if !reflect.DeepEqual(rows[2], want) {
		t.Errorf("expected %v, got %v", want, rows[2])
	}

	total, _ := f.GetCellValue(SheetSummary, "B2")
	if total != "2" {
		t.Errorf("expected total 2, got %q", total)
	}
	damaged, _ := f.GetCellValue(SheetSummary, "B7")
	if damaged != "1" {
		t.Errorf("expected 1 damaged, got %q", damaged)
	}
}

func TestFilename(t *testing.T) {
	got := Filename(time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC))
	if got != "opname_20240301_090507.xlsx" {
		t.Errorf("unexpected filename %q", got)
	}
}
