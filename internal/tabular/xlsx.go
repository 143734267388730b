package tabular

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readSpreadsheet returns the formatted cell values of the first sheet only.
// BIFF workbooks go through the legacy reader; everything else is OOXML.
func readSpreadsheet(payload []byte) ([][]string, error) {
	if isLegacyWorkbook(payload) {
		return readLegacySpreadsheet(payload)
	}
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from %q: %w", sheets[0], err)
	}
	return rows, nil
}
