package tabular

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
)

// oleMagic opens every compound-document (BIFF) workbook.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// maxLegacyCols bounds the column scan for rows stored without a ROW record.
const maxLegacyCols = 256

func isLegacyWorkbook(payload []byte) bool {
	return bytes.HasPrefix(payload, oleMagic)
}

// readLegacySpreadsheet reads the first sheet of a BIFF (.xls) workbook.
// The BIFF reader panics on truncated streams, so those become errors.
func readLegacySpreadsheet(payload []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("corrupt legacy workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(payload), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := legacyRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		width := row.LastCol()
		if width <= 0 {
			width = maxLegacyCols
		}
		cells := make([]string, 0, width)
		for c := 0; c < width; c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, trimTrailingEmpty(cells))
	}
	return rows, nil
}

// legacyRow returns nil for rows the sheet never declared.
func legacyRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func trimTrailingEmpty(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
