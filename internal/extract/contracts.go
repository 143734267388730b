// Package extract turns recognized image text into raw allocation rows.
package extract

import (
	"context"
	"time"

	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

// ProgressFunc receives recognition progress as a fraction in [0, 1].
type ProgressFunc func(fraction float64)

// TextRecognizer is Stage 1: image -> text.
type TextRecognizer interface {
	Recognize(ctx context.Context, path string, progress ProgressFunc) (RecognitionResult, error)
}

type RecognitionResult struct {
	Text       string
	RawText    string
	Method     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// StructureInput is the text handed to a Structurer: the engine's raw output
// when the recognizer kept it, otherwise the normalized text.
func (r RecognitionResult) StructureInput() string {
	if r.RawText != "" {
		return r.RawText
	}
	return r.Text
}

// Structurer is Stage 2: text -> raw rows. Implementations are named and
// versioned; an existing strategy's output never changes.
type Structurer interface {
	Name() string
	Structure(text string) []entity.RawRow
}
