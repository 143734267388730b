package llm

// BuildAllocationJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is sent to the model as the output contract and used locally to validate replies.
func BuildAllocationJSONSchema() map[string]any {
	str := func() map[string]any { return map[string]any{"type": "string"} }
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"register_number": map[string]any{"type": "string", "pattern": `^[A-Z0-9]{6,10}$`},
			"student_name":    str(),
			"hall_name":       str(),
			"seat_number":     str(),
			"exam_date":       map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"exam_time":       str(),
		},
		"required": []string{"register_number"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"allocations": map[string]any{"type": "array", "items": item},
		},
		"required": []string{"allocations"},
	}
}
