package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// Columns is the canonical header row shared by the template and exports.
var Columns = []string{"register_number", "student_name", "hall_name", "seat_number", "exam_date", "exam_time"}

// TemplateRows are the example allocations shipped in the download template.
var TemplateRows = []entity.Allocation{
	{RegisterNumber: "REG12345", StudentName: "John Doe", HallName: "Main Hall A", SeatNumber: "A101", ExamDate: "2023-05-15", ExamTime: "09:00 AM"},
	{RegisterNumber: "REG12346", StudentName: "Jane Smith", HallName: "Main Hall A", SeatNumber: "A102", ExamDate: "2023-05-15", ExamTime: "09:00 AM"},
	{RegisterNumber: "REG12347", StudentName: "Robert Johnson", HallName: "Main Hall B", SeatNumber: "B201", ExamDate: "2023-05-15", ExamTime: "01:00 PM"},
}

const sheetName = "Allocations"

func record(a entity.Allocation) []string {
	return []string{a.RegisterNumber, a.StudentName, a.HallName, a.SeatNumber, a.ExamDate, a.ExamTime}
}

// TemplateCSV renders the template as comma-separated text with a header row.
func TemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Columns)
	for _, a := range TemplateRows {
		_ = w.Write(record(a))
	}
	w.Flush()
	return buf.Bytes()
}

// TemplateXLSX renders the same rows as a single-sheet workbook.
func TemplateXLSX() ([]byte, error) {
	f, err := newWorkbook()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	for i, a := range TemplateRows {
		if err := writeRow(f, i+2, record(a)); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// newWorkbook returns a workbook whose first (and only) sheet carries the header row.
func newWorkbook(extra ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeRow(f, 1, append(append([]string{}, Columns...), extra...)); err != nil {
		_ = f.Close()
		return nil, err
	}
	_ = f.SetColWidth(sheetName, "A", "A", 16)
	_ = f.SetColWidth(sheetName, "B", "C", 24)
	_ = f.SetColWidth(sheetName, "D", "F", 12)
	return f, nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &vals)
}
