// Package pipeline runs one ingestion: read the source, decode or recognize
// it, map rows to canonical allocations and commit them in batches.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/commit"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
	"github.com/john-shalamon/exam-hall-system/internal/extract"
	"github.com/john-shalamon/exam-hall-system/internal/metrics"
	"github.com/john-shalamon/exam-hall-system/internal/normalize"
	"github.com/john-shalamon/exam-hall-system/internal/ocr"
	"github.com/john-shalamon/exam-hall-system/internal/tabular"
)

// Source is the artifact handed to a run. Name's suffix selects the path
// (tabular vs image); Payload wins over Path when both are set.
type Source struct {
	Name    string
	Path    string
	Payload []byte
}

// Summary is what a finished run produced.
type Summary struct {
	RunID            uuid.UUID
	Format           constants.Format
	Records          int
	Batches          int
	BatchesCommitted int
	Confidence       float32
	Warnings         []string
	Duration         time.Duration
}

// Processor coordinates the stages of a run. The commit engine and the
// structurer are shared by both input paths.
type Processor struct {
	engine     *commit.Engine
	recognizer extract.TextRecognizer
	structurer extract.Structurer
	metrics    *metrics.Recorder
	tempDir    string
	logger     *slog.Logger
}

type Option func(*Processor)

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Processor) { p.metrics = m }
}

// WithTempDir sets where uploaded images are spilled for the OCR engine.
func WithTempDir(dir string) Option {
	return func(p *Processor) { p.tempDir = dir }
}

// NewProcessor wires the stages. recognizer may be nil, in which case image
// sources fail with an external engine error.
func NewProcessor(engine *commit.Engine, recognizer extract.TextRecognizer, structurer extract.Structurer, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if structurer == nil {
		structurer = extract.PositionalV1{}
	}
	p := &Processor{
		engine:     engine,
		recognizer: recognizer,
		structurer: structurer,
		logger:     logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Execute drives run through every stage for src. On failure the run keeps
// the error and batches committed before it stay committed.
func (p *Processor) Execute(ctx context.Context, run *Run, src Source) (Summary, error) {
	start := time.Now()
	ctx = common.WithRunID(ctx, run.ID().String())
	logger := common.LoggerFrom(ctx, p.logger)
	run.start()
	logger.Info("run.start", "source", src.Name)

	sum := Summary{RunID: run.ID()}
	err := p.execute(ctx, run, src, &sum, logger)
	sum.Duration = time.Since(start)

	label := string(sum.Format)
	if label == "" {
		label = "unknown"
	}
	if err != nil {
		run.fail(err)
		p.metrics.RecordRun(label, "failed", sum.Duration)
		logger.Error("run.failed",
			"source", src.Name,
			"stage", common.StageOf(err),
			"batches_committed", sum.BatchesCommitted,
			"error", err,
		)
		return sum, err
	}
	run.finish()
	p.metrics.RecordRun(label, "ok", sum.Duration)
	logger.Info("run.ok",
		"source", src.Name,
		"format", sum.Format,
		"records", sum.Records,
		"batches", sum.Batches,
		"elapsed_ms", sum.Duration.Milliseconds(),
	)
	return sum, nil
}

func (p *Processor) execute(ctx context.Context, run *Run, src Source, sum *Summary, logger *slog.Logger) error {
	v := common.NewValidator().Field("name", src.Name, common.Required)
	if src.Payload == nil {
		v.Field("path", src.Path, common.Required)
	}
	if err := v.Error(); err != nil {
		return err
	}

	// suffix decides the path before any byte is read
	ext := constants.NormalizeExt(filepath.Ext(src.Name))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return common.NewStageError(common.ErrFormat, string(constants.StageReading),
			fmt.Sprintf("unsupported file type %q", ext), nil)
	}
	sum.Format = format
	run.setSource(format, "", 0)

	run.setStage(constants.StageReading)
	payload, err := readSource(src)
	if err != nil {
		return common.NewStageError(common.ErrInvalidInput, string(constants.StageReading), "read source", err)
	}
	h := sha256.Sum256(payload)
	hashHex := hex.EncodeToString(h[:])
	run.setSource(format, hashHex, len(payload))
	logger.Debug("source read", "bytes", len(payload), "sha256", hashHex)
	if err := checkpoint(ctx, constants.StageReading); err != nil {
		return err
	}

	var rows []entity.RawRow
	if format == constants.FormatImage {
		rows, err = p.recognize(ctx, run, src, payload, hashHex, sum, logger)
	} else {
		run.setStage(constants.StageDecoding)
		rows, err = tabular.Decode(format, payload)
	}
	if err != nil {
		return err
	}

	run.setStage(constants.StageMapping)
	records := normalize.Map(rows)
	batches := len(commit.Partition(records, p.engine.BatchSize()))
	run.setRecords(len(records), batches)
	sum.Records, sum.Batches = len(records), batches
	logger.Info("rows mapped", "records", len(records), "batches", batches)

	run.setStage(constants.StageCommitting)
	res, err := p.engine.Commit(ctx, records, run.batchCommitted)
	sum.BatchesCommitted = res.BatchesCommitted
	return err
}

func (p *Processor) recognize(ctx context.Context, run *Run, src Source, payload []byte, hashHex string, sum *Summary, logger *slog.Logger) ([]entity.RawRow, error) {
	stage := string(constants.StageRecognizing)
	if p.recognizer == nil {
		return nil, common.NewStageError(common.ErrExternalEngine, stage, "no OCR engine configured", nil)
	}
	run.setStage(constants.StageRecognizing)

	path := src.Path
	if src.Payload != nil || path == "" {
		tmp, cleanup, err := p.spill(src.Name, payload)
		if err != nil {
			return nil, common.NewStageError(common.ErrInvalidInput, stage, "stage image for OCR", err)
		}
		defer cleanup()
		path = tmp
	}

	res, err := p.recognizer.Recognize(ocr.WithContentHash(ctx, hashHex), path, func(f float64) {
		run.report(constants.StageRecognizing, f*100)
	})
	if err != nil {
		return nil, common.NewStageError(common.ErrExternalEngine, stage, "ocr engine failed", err)
	}
	sum.Confidence = res.Confidence
	sum.Warnings = res.Warnings
	p.metrics.RecordOCRConfidence(res.Confidence)
	if res.Confidence < ocr.ImageConfidenceThreshold {
		logger.Warn("low ocr confidence", "confidence", res.Confidence, "threshold", ocr.ImageConfidenceThreshold)
	}
	if err := checkpoint(ctx, constants.StageRecognizing); err != nil {
		return nil, err
	}

	run.setStage(constants.StageStructuring)
	input := res.StructureInput()
	var rows []entity.RawRow
	if cs, ok := p.structurer.(extract.ContextStructurer); ok {
		rows, err = cs.StructureContext(ctx, input)
		if err != nil {
			return nil, common.NewStageError(common.ErrExternalEngine, string(constants.StageStructuring),
				fmt.Sprintf("%s strategy failed", p.structurer.Name()), err)
		}
	} else {
		rows = p.structurer.Structure(input)
	}
	logger.Info("text structured", "strategy", p.structurer.Name(), "rows", len(rows), "chars", len(input))
	if len(rows) == 0 {
		return nil, common.NewStageError(common.ErrEmptyExtraction, string(constants.StageStructuring),
			"no valid data could be extracted from the image", nil)
	}
	return rows, nil
}

// spill writes an uploaded image to a temp file keeping its suffix, which the OCR engine dispatches on.
func (p *Processor) spill(name string, payload []byte) (string, func(), error) {
	f, err := os.CreateTemp(p.tempDir, "examhall-ocr-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}

func readSource(src Source) ([]byte, error) {
	if src.Payload != nil {
		return src.Payload, nil
	}
	return os.ReadFile(src.Path)
}

// checkpoint stops the run between stages once ctx is done. The error is
// attributed to the stage that had just completed.
func checkpoint(ctx context.Context, after constants.Stage) error {
	if err := ctx.Err(); err != nil {
		return common.NewStageError(common.ErrCancelled, string(after), "run cancelled", err)
	}
	return nil
}
