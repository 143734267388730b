package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 14, 22, 30, 0, 0, time.UTC)
}

func TestPositionalV1_TwoRecords(t *testing.T) {
	s := PositionalV1{Now: fixedClock}
	rows := s.Structure("REG99001\nAlice\nHall X\nC12\nREG99002\nBob\nHall Y\nC13")

	require.Len(t, rows, 2)
	assert.Equal(t, entity.RawRow{
		"register_number": "REG99001",
		"student_name":    "Alice",
		"hall_name":       "Hall X",
		"seat_number":     "C12",
		"exam_date":       "2025-03-14",
		"exam_time":       "09:00 AM",
	}, rows[0])
	assert.Equal(t, entity.RawRow{
		"register_number": "REG99002",
		"student_name":    "Bob",
		"hall_name":       "Hall Y",
		"seat_number":     "C13",
		"exam_date":       "2025-03-14",
		"exam_time":       "09:00 AM",
	}, rows[1])
}

func TestPositionalV1_DefaultsToCurrentDate(t *testing.T) {
	rows := PositionalV1{}.Structure("REG99001\nAlice\nHall X\nC12")
	require.Len(t, rows, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), rows[0]["exam_date"])
}

func TestPositionalV1_Heuristics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []entity.RawRow
	}{
		{
			name: "no candidates",
			text: "exam hall list\nroom b\n",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "missing trailing lines become Unknown",
			text: "REG12345\nAlice",
			want: []entity.RawRow{row("REG12345", "Alice", "Unknown", "Unknown")},
		},
		{
			name: "blank lines and CRLF are skipped",
			text: "REG12345\r\n\r\n  \nAlice\r\nHall X\r\n\nC12\r\n",
			want: []entity.RawRow{row("REG12345", "Alice", "Hall X", "C12")},
		},
		{
			name: "match is a substring of the line",
			text: "Reg No: 2023CS042 (regular)\nAlice\nHall X\nC12",
			want: []entity.RawRow{row("2023CS042", "Alice", "Hall X", "C12")},
		},
		{
			name: "only the first run up to ten characters is taken",
			text: "ABCDEFGHIJKLMN\nAlice\nHall X\nC12",
			want: []entity.RawRow{row("ABCDEFGHIJ", "Alice", "Hall X", "C12")},
		},
		{
			name: "consumed lines are never rematched",
			text: "REG00001\nREG00002\nREG00003\nREG00004\nREG00005",
			want: []entity.RawRow{
				row("REG00001", "REG00002", "REG00003", "REG00004"),
				row("REG00005", "Unknown", "Unknown", "Unknown"),
			},
		},
		{
			name: "noise before a match is skipped",
			text: "Seating Plan\nFloor 2\nREG55555\nEve\nAnnex\nD4",
			want: []entity.RawRow{row("REG55555", "Eve", "Annex", "D4")},
		},
		{
			name: "lowercase ids do not match",
			text: "reg12345\nAlice\nHall X\nC12",
			want: nil,
		},
	}
	s := PositionalV1{Now: fixedClock}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Structure(tt.text))
		})
	}
}

func row(reg, name, hall, seat string) entity.RawRow {
	return entity.RawRow{
		"register_number": reg,
		"student_name":    name,
		"hall_name":       hall,
		"seat_number":     seat,
		"exam_date":       "2025-03-14",
		"exam_time":       "09:00 AM",
	}
}

func TestLookup(t *testing.T) {
	s, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, PositionalV1Name, s.Name())

	s, err = Lookup("positional-v1")
	require.NoError(t, err)
	assert.Equal(t, PositionalV1Name, s.Name())

	_, err = Lookup("layout-v9")
	assert.Error(t, err)
	assert.Equal(t, []string{"llm-v1", "positional-v1"}, Names())
}

func TestRecognitionResult_StructureInput(t *testing.T) {
	assert.Equal(t, "raw  text\n---", RecognitionResult{Text: "raw text", RawText: "raw  text\n---"}.StructureInput())
	assert.Equal(t, "raw text", RecognitionResult{Text: "raw text"}.StructureInput())
}
