package ingest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseBatchCSVWithByteOrderMark(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte(
		"IC Channel,IC COT,New Channel,New COT\n"+
			"Retail,Pharmacy,Community Retail,Independent\n"+
			",,,\n"+
			"Hospital,Acute,Institutional,Acute Care\n")...)

	batch, err := ParseBatch("mappings.csv", payload, DefaultAliases())
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank row dropped)", len(batch.Rows))
	}
	if batch.Rows[0].OriginalChannel != "Retail" {
		t.Errorf("first cell = %q; byte order mark not stripped", batch.Rows[0].OriginalChannel)
	}
	if batch.Rows[1].NewTradeClass != "Acute Care" {
		t.Errorf("unexpected row: %+v", batch.Rows[1])
	}
}

func TestParseBatchWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	cells := [][]interface{}{
		{"IC Channel", "IC COT", "New Channel", "New COT", "Notes"},
		{"Retail", "Pharmacy", "Community Retail", "Independent", "reviewed"},
		{"Mail Order", "Pharmacy", "", "", ""},
	}
	for i, row := range cells {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	batch, err := ParseBatch("mappings.xlsx", buf.Bytes(), DefaultAliases())
	if err != nil {
		t.Fatalf("ParseBatch failed: %v", err)
	}
	if len(batch.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(batch.Rows))
	}
	if batch.Rows[0].Notes != "reviewed" {
		t.Errorf("notes = %q, want reviewed", batch.Rows[0].Notes)
	}
	if batch.Rows[1].HasIdentity() != true {
		t.Error("second row carries both key cells")
	}
}

func TestParseBatchRejectsUnsupportedExtension(t *testing.T) {
	_, err := ParseBatch("mappings.pdf", []byte("x"), DefaultAliases())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseBatchRejectsEmptyPayload(t *testing.T) {
	if _, err := ParseBatch("mappings.csv", nil, DefaultAliases()); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestIsSpreadsheet(t *testing.T) {
	for _, name := range []string{"a.xlsx", "b.XLS", "c.csv"} {
		if !IsSpreadsheet(name) {
			t.Errorf("IsSpreadsheet(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"a.pdf", "b.txt", "noext"} {
		if IsSpreadsheet(name) {
			t.Errorf("IsSpreadsheet(%q) = true, want false", name)
		}
	}
}
