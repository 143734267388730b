package extract

import (
	"context"
	"log/slog"

	"github.com/john-shalamon/exam-hall-system/internal/ocr"
)

type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Recognize(ctx context.Context, path string, progress ProgressFunc) (RecognitionResult, error) {
	r, err := a.e.Extract(ctx, path, progress)
	if err == nil {
		a.logger.Debug("recognized image", "path", path, "chars", len(r.Text), "confidence", r.Confidence)
	}
	return RecognitionResult{
		Text:       r.Text,
		RawText:    r.RawText,
		Method:     r.Method,
		Language:   r.Language,
		Duration:   r.Duration,
		Warnings:   r.Warnings,
		Confidence: r.Confidence,
	}, err
}
