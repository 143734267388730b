package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
	"github.com/john-shalamon/exam-hall-system/internal/llm"
)

// LLMV1Name identifies the model-backed structuring strategy.
const LLMV1Name = "llm-v1"

// ContextStructurer is a Structurer that can fail or block; the pipeline
// prefers it over Structure when a strategy implements it.
type ContextStructurer interface {
	Structurer
	StructureContext(ctx context.Context, text string) ([]entity.RawRow, error)
}

// LLMV1 asks a chat model to read the sheet. Fields the model left out get
// the same placeholders and defaults positional-v1 applies.
type LLMV1 struct {
	x      llm.RowExtractor
	now    func() time.Time
	logger *slog.Logger
}

func NewLLMV1(x llm.RowExtractor, logger *slog.Logger) *LLMV1 {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMV1{x: x, now: time.Now, logger: logger}
}

func (*LLMV1) Name() string { return LLMV1Name }

// Structure is the context-free form; a model failure yields no rows.
func (s *LLMV1) Structure(text string) []entity.RawRow {
	rows, err := s.StructureContext(context.Background(), text)
	if err != nil {
		s.logger.Warn("llm structuring failed", "error", err)
		return nil
	}
	return rows
}

func (s *LLMV1) StructureContext(ctx context.Context, text string) ([]entity.RawRow, error) {
	today := s.now().UTC().Format(constants.DateLayout)
	fields, _, err := s.x.ExtractRows(ctx, llm.ExtractRequest{
		OCRText:     text,
		Today:       today,
		DefaultTime: constants.DefaultExamTime,
	})
	if err != nil {
		return nil, err
	}
	rows := make([]entity.RawRow, 0, len(fields))
	for _, f := range fields {
		row := entity.RawRow{
			"register_number": f.RegisterNumber,
			"student_name":    f.StudentName,
			"hall_name":       f.HallName,
			"seat_number":     f.SeatNumber,
			"exam_date":       f.ExamDate,
			"exam_time":       f.ExamTime,
		}
		for _, k := range []string{"student_name", "hall_name", "seat_number"} {
			if row[k] == "" {
				row[k] = constants.UnknownValue
			}
		}
		if row["exam_date"] == "" {
			row["exam_date"] = today
		}
		if row["exam_time"] == "" {
			row["exam_time"] = constants.DefaultExamTime
		}
		rows = append(rows, row)
	}
	return rows, nil
}
