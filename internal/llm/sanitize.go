package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var reRegister = regexp.MustCompile(`^[A-Z0-9]{6,10}$`)

var synonyms = map[string]string{
	"registerNumber": "register_number",
	"regNo":          "register_number",
	"reg_no":         "register_number",
	"studentName":    "student_name",
	"name":           "student_name",
	"hallName":       "hall_name",
	"hall":           "hall_name",
	"seatNumber":     "seat_number",
	"seat":           "seat_number",
	"examDate":       "exam_date",
	"date":           "exam_date",
	"examTime":       "exam_time",
	"time":           "exam_time",
}

var knownFields = map[string]bool{
	"register_number": true,
	"student_name":    true,
	"hall_name":       true,
	"seat_number":     true,
	"exam_date":       true,
	"exam_time":       true,
}

// SanitizeDocument reshapes a model reply so it can pass the strict schema:
// a bare array is wrapped, key synonyms are renamed, numbers become strings,
// null/empty and unknown keys are dropped, register numbers are upper-cased,
// and rows left without a well-formed register number are removed. It returns what was dropped.
func SanitizeDocument(raw []byte) ([]byte, []string, error) {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var items []any
	switch t := top.(type) {
	case []any:
		items = t
	case map[string]any:
		switch a := t["allocations"].(type) {
		case []any:
			items = a
		case nil:
		default:
			return nil, nil, fmt.Errorf("sanitize: allocations is %T, want array", a)
		}
	default:
		return nil, nil, fmt.Errorf("sanitize: unexpected top-level %T", top)
	}

	var dropped []string
	rows := make([]map[string]string, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("allocations[%d](not an object)", i))
			continue
		}
		row := map[string]string{}
		for k, v := range m {
			key := k
			if canon, ok := synonyms[k]; ok {
				key = canon
			}
			if !knownFields[key] {
				dropped = append(dropped, fmt.Sprintf("allocations[%d].%s", i, k))
				continue
			}
			s, ok := asString(v)
			if !ok || s == "" {
				continue
			}
			if _, taken := row[key]; taken && key != k {
				continue // the canonical spelling wins over a synonym
			}
			row[key] = s
		}
		row["register_number"] = strings.ToUpper(strings.ReplaceAll(row["register_number"], " ", ""))
		if !reRegister.MatchString(row["register_number"]) {
			dropped = append(dropped, fmt.Sprintf("allocations[%d](no register_number)", i))
			continue
		}
		rows = append(rows, row)
	}

	b, err := json.Marshal(map[string]any{"allocations": rows})
	if err != nil {
		return nil, nil, err
	}
	return b, dropped, nil
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool, nil:
		return "", false
	default:
		return "", false
	}
}
