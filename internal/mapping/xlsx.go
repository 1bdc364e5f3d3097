package mapping

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"episode-mapper/internal/direction"
)

// ErrNoTables is returned when a mapping has nothing to export.
var ErrNoTables = errors.New("mapping contains no tables")

const maxSheetName = 31

// ExportXLSX writes every table in markdown to w as an XLSX workbook, one
// sheet per table. Sheets read right to left when dir is RTL. It returns
// the number of sheets written.
func ExportXLSX(markdown string, dir direction.Direction, w io.Writer) (int, error) {
	tables := ParseTables(markdown)
	if len(tables) == 0 {
		return 0, ErrNoTables
	}

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}

	used := map[string]bool{}
	for i, t := range tables {
		name := sheetName(t.Title, i+1, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return 0, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return 0, fmt.Errorf("add sheet %q: %w", name, err)
		}

		if err := writeTable(f, name, t, bold); err != nil {
			return 0, err
		}
		if dir == direction.RTL {
			rtl := true
			if err := f.SetSheetView(name, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
				return 0, fmt.Errorf("set sheet direction: %w", err)
			}
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(tables), nil
}

func writeTable(f *excelize.File, sheet string, t Table, headerStyle int) error {
	rows := append([][]string{t.Header}, t.Rows...)
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %q: %w", r+1, sheet, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}

// sheetName derives a unique, valid worksheet name.
func sheetName(title string, n int, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Table %d", n)
	}
	name = truncateRunes(name, maxSheetName)

	base := name
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
