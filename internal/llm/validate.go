package llm

import (
	"encoding/json"

	"github.com/john-shalamon/exam-hall-system/internal/common"
)

var allocationSchema = common.MustCompileSchema("allocations.schema.json", mustMarshal(BuildAllocationJSONSchema()))

// ValidateAllocations checks a model reply against the allocation document schema.
func ValidateAllocations(data []byte) error {
	return common.ValidateJSON(allocationSchema, data)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
