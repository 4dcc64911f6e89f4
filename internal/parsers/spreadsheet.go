package parsers

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Serial numbers in this range are read as calendar dates (1954-10-03 .. 2119-01-10)
const (
	DateSerialMin = 20000
	DateSerialMax = 80000
)

// ReadWorkbook reads every sheet of a workbook (or only sheetName when set) into tables.
// The first row of a sheet is its header row; sheets without rows are skipped.
func ReadWorkbook(data []byte, sheetName string) ([]Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var tables []Table
	found := false
	for _, sheet := range f.GetSheetList() {
		if sheetName != "" && !strings.EqualFold(sheet, sheetName) {
			continue
		}
		found = true

		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		numeric := func(row, col int) bool {
			return isNumericCell(f, sheet, row, col)
		}
		if table, ok := sheetTable(sheet, rows, numeric); ok {
			tables = append(tables, table)
		}
	}
	if sheetName != "" && !found {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}
	return tables, nil
}

// isNumericCell reports whether the zero-based cell holds a number. Cells without a type
// attribute are numbers; strings, booleans, inline dates and errors are not.
func isNumericCell(f *excelize.File, sheet string, row, col int) bool {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return false
	}
	cellType, err := f.GetCellType(sheet, axis)
	if err != nil {
		return false
	}
	return cellType == excelize.CellTypeNumber || cellType == excelize.CellTypeUnset
}

// sheetTable builds a table from raw rows. Only cells numeric reports as numbers go through
// ConvertCell; text cells are kept as typed.
func sheetTable(sheet string, rows [][]string, numeric func(row, col int) bool) (Table, bool) {
	table := Table{Sheet: sheet}
	headerSeen := false
	for i, raw := range rows {
		if isBlankRow(raw) {
			continue
		}
		cells := make([]string, len(raw))
		for j, v := range raw {
			if numeric(i, j) {
				cells[j] = ConvertCell(v)
			} else {
				cells[j] = v
			}
		}
		if !headerSeen {
			for j := range cells {
				cells[j] = strings.TrimSpace(cells[j])
			}
			table.Headers = cells
			headerSeen = true
			continue
		}
		table.Rows = append(table.Rows, Row{Number: i + 1, Cells: cells})
	}
	return table, headerSeen
}

// ConvertCell reinterprets a raw numeric cell value: day fractions become HH:MM, date serials
// become ISO dates, other numbers are stringified without trailing zeros.
func ConvertCell(raw string) string {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return raw
	}

	switch {
	case v > 0 && v < 1:
		minutes := int(math.Round(v * minutesPerDay))
		if minutes >= minutesPerDay {
			minutes = minutesPerDay - 1
		}
		return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
	case v >= DateSerialMin && v <= DateSerialMax:
		t, err := excelize.ExcelDateToTime(v, false)
		if err != nil {
			return s
		}
		return t.Format("2006-01-02")
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
