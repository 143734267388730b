package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

const templateCSV = "register_number,student_name,hall_name,seat_number,exam_date,exam_time\n" +
	"REG12345,John Doe,Main Hall A,A101,2023-05-15,09:00 AM\n" +
	"REG12346,Jane Smith,Main Hall A,A102,2023-05-15,09:00 AM\n" +
	"REG12347,Robert Johnson,Main Hall B,B201,2023-05-15,01:00 PM\n"

func TestFormatForName(t *testing.T) {
	tests := []struct {
		name    string
		want    constants.Format
		wantErr bool
	}{
		{"allocations.csv", constants.FormatDelimited, false},
		{"ALLOCATIONS.CSV", constants.FormatDelimited, false},
		{"halls.xlsx", constants.FormatSpreadsheet, false},
		{"legacy.xls", constants.FormatSpreadsheet, false},
		{"notes.txt", "", true},
		{"scan.png", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatForName(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrFormat)
				assert.Equal(t, "decoding", common.StageOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeFile_UnsupportedSuffixIgnoresPayload(t *testing.T) {
	rows, err := DecodeFile("allocations.json", nil)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestDecode_CSVTemplate(t *testing.T) {
	rows, err := Decode(constants.FormatDelimited, []byte(templateCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, entity.RawRow{
		"register_number": "REG12345",
		"student_name":    "John Doe",
		"hall_name":       "Main Hall A",
		"seat_number":     "A101",
		"exam_date":       "2023-05-15",
		"exam_time":       "09:00 AM",
	}, rows[0])
	assert.Equal(t, "REG12347", rows[2]["register_number"])
	assert.Equal(t, "01:00 PM", rows[2]["exam_time"])
}

func TestDecode_CSVRaggedRows(t *testing.T) {
	payload := "regNo,name,hall\n" +
		"R000001,Short\n" +
		"R000002,Long,Hall 1,extra,cells\n"

	rows, err := Decode(constants.FormatDelimited, []byte(payload))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, entity.RawRow{"regNo": "R000001", "name": "Short"}, rows[0])
	assert.Equal(t, entity.RawRow{"regNo": "R000002", "name": "Long", "hall": "Hall 1"}, rows[1])
}

func TestDecode_CSVHeaderHandling(t *testing.T) {
	payload := "\xEF\xBB\xBF register_number ,,register_number\n" +
		"\n" +
		"REG1,ignored,second\n"

	rows, err := Decode(constants.FormatDelimited, []byte(payload))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, entity.RawRow{"register_number": "REG1"}, rows[0])
}

func TestDecode_CSVHeaderOnlyAndEmpty(t *testing.T) {
	rows, err := Decode(constants.FormatDelimited, []byte("register_number,student_name\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = Decode(constants.FormatDelimited, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecode_CSVMalformed(t *testing.T) {
	_, err := Decode(constants.FormatDelimited, []byte("register_number,student_name\nREG1,\"unterminated\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestDecode_SpreadsheetFirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	const first = "Sheet1"
	header := []string{"registerNumber", "studentName", "hallName", "seatNumber", "examDate", "examTime"}
	data := [][]string{
		header,
		{"REG20001", "Ada", "Block C", "C01", "2024-01-10", "10:00 AM"},
		{},
		{"REG20002", "Linus", "Block C", "C02"},
	}
	for r, rec := range data {
		for c, v := range rec {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(first, cell, v))
		}
	}
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "register_number"))
	require.NoError(t, f.SetCellValue("Other", "A2", "SHOULDNOTAPPEAR"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := DecodeFile("halls.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "REG20001", rows[0]["registerNumber"])
	assert.Equal(t, "10:00 AM", rows[0]["examTime"])
	assert.Equal(t, entity.RawRow{
		"registerNumber": "REG20002",
		"studentName":    "Linus",
		"hallName":       "Block C",
		"seatNumber":     "C02",
	}, rows[1])
}

func TestDecode_SpreadsheetGarbage(t *testing.T) {
	_, err := Decode(constants.FormatSpreadsheet, bytes.Repeat([]byte{0xD0, 0xCF}, 64))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFormat)
}

func TestDecode_LegacyWorkbookFirstSheetOnly(t *testing.T) {
	payload, err := os.ReadFile(filepath.Join("testdata", "halls.xls"))
	require.NoError(t, err)
	require.True(t, isLegacyWorkbook(payload))

	rows, err := DecodeFile("halls.xls", payload)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.RawRow{
		"register_number": "REG30001",
		"student_name":    "Grace Hopper",
		"hall_name":       "Hall D",
		"seat_number":     "D01",
		"exam_date":       "2024-03-04",
		"exam_time":       "09:00 AM",
	}, rows[0])
	assert.Equal(t, entity.RawRow{
		"register_number": "REG30002",
		"student_name":    "Alan Turing",
		"hall_name":       "Hall D",
		"seat_number":     "D02",
	}, rows[1])
	assert.Equal(t, "REG30003", rows[2]["register_number"])
	assert.Equal(t, "01:00 PM", rows[2]["exam_time"])
	for _, r := range rows {
		assert.NotEqual(t, "SHOULDNOTAPPEAR", r["register_number"])
	}
}

func TestDecode_LegacyWorkbookCorruptHeader(t *testing.T) {
	payload := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 504)...)
	_, err := Decode(constants.FormatSpreadsheet, payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrFormat)
}
