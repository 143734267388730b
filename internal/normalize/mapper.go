// Package normalize reconciles loosely keyed rows into canonical allocation records.
package normalize

import (
	"strings"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// Aliases lists the accepted key spellings per canonical field, in lookup order.
var Aliases = struct {
	RegisterNumber []string
	StudentName    []string
	HallName       []string
	SeatNumber     []string
	ExamDate       []string
	ExamTime       []string
}{
	RegisterNumber: []string{"register_number", "registerNumber", "regNo"},
	StudentName:    []string{"student_name", "studentName", "name"},
	HallName:       []string{"hall_name", "hallName", "hall"},
	SeatNumber:     []string{"seat_number", "seatNumber", "seat"},
	ExamDate:       []string{"exam_date", "examDate", "date"},
	ExamTime:       []string{"exam_time", "examTime", "time"},
}

// Map converts every row, keeping order. It never drops a row.
func Map(rows []entity.RawRow) []entity.Allocation {
	out := make([]entity.Allocation, len(rows))
	for i, row := range rows {
		out[i] = MapRow(row)
	}
	return out
}

// MapRow picks each canonical field from the first alias holding a non-blank value.
// Fields with no usable alias become "".
func MapRow(row entity.RawRow) entity.Allocation {
	return entity.Allocation{
		RegisterNumber: pick(row, Aliases.RegisterNumber),
		StudentName:    pick(row, Aliases.StudentName),
		HallName:       pick(row, Aliases.HallName),
		SeatNumber:     pick(row, Aliases.SeatNumber),
		ExamDate:       pick(row, Aliases.ExamDate),
		ExamTime:       pick(row, Aliases.ExamTime),
	}
}

func pick(row entity.RawRow, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(row[k]); v != "" {
			return v
		}
	}
	return ""
}
