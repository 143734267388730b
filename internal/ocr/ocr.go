package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/john-shalamon/exam-hall-system/constants"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	ArtifactCacheDir string
}

type ExtractionResult struct {
	Text       string
	RawText    string // engine output before Normalize
	Method     string // "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Progress checkpoints reported while an image is processed.
const (
	progressStart      = 0.0
	progressConverted  = 0.1
	progressRecognized = 0.8
	progressScored     = 0.95
	progressDone       = 1.0
)

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewExtractorWithRunner(cfg, execRunner{logger: logger, killGrace: 2 * time.Second}, logger)
}

// NewExtractorWithRunner lets callers substitute the command runner.
func NewExtractorWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &Extractor{cfg: cfg, runner: runner, logger: logger}
}

// Extract recognizes the text of an image file. progress, when non-nil,
// receives non-decreasing fractions in [0, 1].
func (e *Extractor) Extract(ctx context.Context, path string, progress func(float64)) (ExtractionResult, error) {
	start := time.Now()
	report := func(f float64) {
		if progress != nil {
			progress(f)
		}
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "ext", ext)
	if constants.MapExtToFormat(ext) != constants.FormatImage {
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	report(progressStart)

	var warns []string
	if constants.IsHEICExt(ext) {
		hashHex, _ := contentHashFromCtx(ctx)
		out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
		warns = append(warns, w...)
		if err != nil {
			e.logger.Error("heic conversion failed", "path", path, "error", err)
			return ExtractionResult{Warnings: warns}, err
		}
		if cleanup != nil {
			defer cleanup()
		}
		path = out
	}
	report(progressConverted)

	res, err := e.extractImage(ctx, path, report)
	res.Duration = time.Since(start)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}
	report(progressDone)
	return res, nil
}
