package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// PositionalV1Name identifies the fixed match-plus-three-lines heuristic.
const PositionalV1Name = "positional-v1"

// registerNumberPattern is deliberately unanchored: the first 6-10 character
// run of uppercase letters/digits anywhere on a line counts.
var registerNumberPattern = regexp.MustCompile(`[A-Z0-9]{6,10}`)

// followLines is how many lines after a match belong to the same record.
const followLines = 3

// PositionalV1 treats every line carrying a register number as the start of a
// record whose next three lines are student name, hall name and seat number.
// It is lossy and order dependent. It reads the recognizer's raw output, so
// whitespace runs and ruling lines such as "-----" survive into fields.
type PositionalV1 struct {
	// Now supplies the extraction date; defaults to time.Now.
	Now func() time.Time
}

func (PositionalV1) Name() string { return PositionalV1Name }

func (p PositionalV1) Structure(text string) []entity.RawRow {
	lines := nonEmptyLines(text)
	examDate := p.today()

	var rows []entity.RawRow
	for i := 0; i < len(lines); i++ {
		reg := registerNumberPattern.FindString(lines[i])
		if reg == "" {
			continue
		}
		rows = append(rows, entity.RawRow{
			"register_number": reg,
			"student_name":    lineOrUnknown(lines, i+1),
			"hall_name":       lineOrUnknown(lines, i+2),
			"seat_number":     lineOrUnknown(lines, i+3),
			"exam_date":       examDate,
			"exam_time":       constants.DefaultExamTime,
		})
		i += followLines
	}
	return rows
}

func (p PositionalV1) today() string {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return now().UTC().Format(constants.DateLayout)
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, ln := range raw {
		ln = strings.TrimSuffix(ln, "\r")
		if strings.TrimSpace(ln) == "" {
			continue
		}
		out = append(out, ln)
	}
	return out
}

func lineOrUnknown(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return constants.UnknownValue
}
