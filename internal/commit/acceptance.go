package commit

import (
	"encoding/json"
	"fmt"

	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// recordSchema is the per-record acceptance rule applied before a batch is sent.
const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["register_number", "student_name", "hall_name", "seat_number", "exam_date", "exam_time"],
  "properties": {
    "register_number": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "student_name":    {"type": "string", "minLength": 1, "pattern": "\\S"},
    "hall_name":       {"type": "string", "minLength": 1, "pattern": "\\S"},
    "seat_number":     {"type": "string", "minLength": 1, "pattern": "\\S"},
    "exam_date":       {"type": "string"},
    "exam_time":       {"type": "string"}
  }
}`

var compiledRecordSchema = common.MustCompileSchema("allocation.schema.json", []byte(recordSchema))

// checkBatch validates every record; offset is the position of batch[0] in the run.
func checkBatch(batch []entity.Allocation, offset int) error {
	for i, rec := range batch {
		if err := checkRecord(rec); err != nil {
			return fmt.Errorf("%w: record %d (register_number %q): %v",
				common.ErrValidation, offset+i+1, rec.RegisterNumber, err)
		}
	}
	return nil
}

func checkRecord(rec entity.Allocation) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return common.ValidateJSON(compiledRecordSchema, b)
}
