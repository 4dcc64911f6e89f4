package parsers

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheet := "Sheet1"
	rows := [][]any{
		{"Datum", "Beginn", "Ende", "Notiz"},
		{45306, 0.375, 0.5, "Planning"},
		{nil, nil, nil, nil},
		{45307, 0.5, 0.5625, "Review"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("CoordinatesToCellName: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}

	if _, err := f.NewSheet("Empty"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t)

	tables, err := ReadWorkbook(data, "")
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("len(tables) = %d, want 1 (empty sheet skipped)", len(tables))
	}

	table := tables[0]
	if table.Sheet != "Sheet1" {
		t.Errorf("Sheet = %q, want Sheet1", table.Sheet)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}

	first := table.Rows[0]
	if first.Cells[0] != "2024-01-15" {
		t.Errorf("date cell = %q, want 2024-01-15", first.Cells[0])
	}
	if first.Cells[1] != "09:00" || first.Cells[2] != "12:00" {
		t.Errorf("time cells = %q/%q, want 09:00/12:00", first.Cells[1], first.Cells[2])
	}
	if table.Rows[1].Number != 4 {
		t.Errorf("second row Number = %d, want 4", table.Rows[1].Number)
	}

	mapping, _ := AutoMap(table.Headers, nil)
	result := ExtractRows(table, mapping, ExtractOptions{})
	if got := result.Candidates[0].DurationMinutes; got == nil || *got != 180 {
		t.Errorf("duration = %v, want 180", got)
	}
}

func TestReadWorkbookNamedSheet(t *testing.T) {
	t.Parallel()

	data := buildWorkbook(t)

	if _, err := ReadWorkbook(data, "missing"); err == nil {
		t.Error("expected error for unknown sheet")
	}
	tables, err := ReadWorkbook(data, "sheet1")
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	if len(tables) != 1 {
		t.Errorf("len(tables) = %d, want 1", len(tables))
	}
	if _, err := ReadWorkbook([]byte("not a workbook"), ""); err == nil {
		t.Error("expected error for invalid workbook")
	}
}

func TestConvertCell(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "0.5", want: "12:00"},
		{input: "0.999999", want: "23:59"},
		{input: "45306", want: "2024-01-15"},
		{input: "2.50", want: "2.5"},
		{input: "8", want: "8"},
		{input: "Planning", want: "Planning"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ConvertCell(tt.input); got != tt.want {
				t.Errorf("ConvertCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadWorkbookKeepsTextCells(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	sheet := "Sheet1"
	cells := []struct {
		axis  string
		value any
		text  bool
	}{
		{"A1", "Datum", true},
		{"B1", "Dauer", true},
		{"C1", "Ticket", true},
		{"D1", "Beginn", true},
		{"A2", "15.01.2024", true},
		{"B2", "0.5", true},
		{"C2", "45000", true},
		{"D2", 0.375, false},
	}
	for _, c := range cells {
		var err error
		if c.text {
			err = f.SetCellStr(sheet, c.axis, c.value.(string))
		} else {
			err = f.SetCellValue(sheet, c.axis, c.value)
		}
		if err != nil {
			t.Fatalf("set %s: %v", c.axis, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	tables, err := ReadWorkbook(buf.Bytes(), "")
	if err != nil {
		t.Fatalf("ReadWorkbook() error = %v", err)
	}
	if len(tables) != 1 || len(tables[0].Rows) != 1 {
		t.Fatalf("tables = %+v, want one table with one row", tables)
	}

	got := tables[0].Rows[0].Cells
	want := []string{"15.01.2024", "0.5", "45000", "09:00"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, got[i], want[i])
		}
	}
	if minutes, ok := ParseDuration(got[1]); !ok || minutes != 30 {
		t.Errorf("ParseDuration(%q) = %d, %v, want 30", got[1], minutes, ok)
	}
}
