// Package tabular decodes delimited-text and spreadsheet uploads into raw rows.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

const stage = string(constants.StageDecoding)

// FormatForName selects the decoder from the declared file name suffix.
// Content is never sniffed.
func FormatForName(name string) (constants.Format, error) {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if f, ok := constants.TabularExtensions[ext]; ok {
		return f, nil
	}
	return "", common.NewStageError(common.ErrFormat, stage,
		fmt.Sprintf("unsupported file type %q", ext), nil)
}

// DecodeFile resolves the format from name and decodes payload with it.
func DecodeFile(name string, payload []byte) ([]entity.RawRow, error) {
	format, err := FormatForName(name)
	if err != nil {
		return nil, err
	}
	return Decode(format, payload)
}

// Decode parses payload as format. The first non-empty row is the header;
// every later row becomes a RawRow keyed by header cells.
func Decode(format constants.Format, payload []byte) ([]entity.RawRow, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case constants.FormatDelimited:
		records, err = readCSV(payload)
	case constants.FormatSpreadsheet:
		records, err = readSpreadsheet(payload)
	default:
		return nil, common.NewStageError(common.ErrFormat, stage,
			fmt.Sprintf("no decoder for format %q", format), nil)
	}
	if err != nil {
		return nil, common.NewStageError(common.ErrFormat, stage,
			fmt.Sprintf("cannot parse as %s", format), err)
	}
	return toRows(records), nil
}

func toRows(records [][]string) []entity.RawRow {
	records = dropBlank(records)
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]struct{}, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		header[i] = h
	}

	rows := make([]entity.RawRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(entity.RawRow, len(header))
		for i, key := range header {
			if key == "" || i >= len(rec) {
				continue
			}
			row[key] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func dropBlank(records [][]string) [][]string {
	out := records[:0:0]
	for _, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
