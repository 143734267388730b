// Package llm asks a chat-completions model to turn recognized sheet text
// into allocation rows, and validates what comes back.
package llm

import "context"

// AllocationFields is one row as the model is asked to return it.
type AllocationFields struct {
	RegisterNumber string `json:"register_number"`
	StudentName    string `json:"student_name,omitempty"`
	HallName       string `json:"hall_name,omitempty"`
	SeatNumber     string `json:"seat_number,omitempty"`
	ExamDate       string `json:"exam_date,omitempty"`
	ExamTime       string `json:"exam_time,omitempty"`
}

// Document is the top-level JSON object the model must produce.
type Document struct {
	Allocations []AllocationFields `json:"allocations"`
}

type ExtractRequest struct {
	OCRText      string
	FilenameHint string
	Today        string // YYYY-MM-DD, used when a row has no date
	DefaultTime  string
}

// RowExtractor is implemented by model clients.
type RowExtractor interface {
	// ExtractRows returns the validated rows and the raw JSON they were read from.
	ExtractRows(ctx context.Context, req ExtractRequest) ([]AllocationFields, []byte, error)
}
