// Package commit persists canonical allocations in fixed-size, strictly ordered batches.
package commit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
	"github.com/john-shalamon/exam-hall-system/internal/metrics"
)

// Upserter is the persistence collaborator: insert new register numbers,
// replace every field of existing ones. One call is one batch.
type Upserter interface {
	UpsertMany(ctx context.Context, records []entity.Allocation) error
}

// Result describes how far a commit got.
type Result struct {
	Batches          int
	BatchesCommitted int
	Records          int
	RecordsCommitted int
}

type Engine struct {
	store     Upserter
	batchSize int
	accept    bool
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

type Option func(*Engine)

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithAcceptanceCheck toggles schema validation of each batch before it is sent.
func WithAcceptanceCheck(on bool) Option {
	return func(e *Engine) { e.accept = on }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store Upserter, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:     store,
		batchSize: constants.DefaultBatchSize,
		accept:    true,
		logger:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BatchSize reports the configured batch size.
func (e *Engine) BatchSize() int { return e.batchSize }

// Partition splits records into ceil(n/size) consecutive batches; the last holds the remainder.
func Partition(records []entity.Allocation, size int) [][]entity.Allocation {
	if size <= 0 {
		size = constants.DefaultBatchSize
	}
	if len(records) == 0 {
		return nil
	}
	out := make([][]entity.Allocation, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		out = append(out, records[start:end])
	}
	return out
}

// Commit upserts records batch by batch, in order. After each committed batch
// progress receives (batches done / total batches) * 100. The first failure
// stops the run with a CommitError; batches committed before it stay committed.
// Zero records is a no-op and reports no progress.
func (e *Engine) Commit(ctx context.Context, records []entity.Allocation, progress func(float64)) (Result, error) {
	logger := common.LoggerFrom(ctx, e.logger)
	batches := Partition(records, e.batchSize)
	res := Result{Batches: len(batches), Records: len(records)}
	if len(batches) == 0 {
		logger.Info("commit.skip", "reason", "no records")
		return res, nil
	}

	total := len(batches)
	offset := 0
	for i, batch := range batches {
		n := i + 1
		if err := ctx.Err(); err != nil {
			return res, e.fail(logger, n, total, "cancelled before batch", err)
		}
		if e.accept {
			if err := checkBatch(batch, offset); err != nil {
				return res, e.fail(logger, n, total, "batch rejected", err)
			}
		}

		start := time.Now()
		if err := e.store.UpsertMany(ctx, batch); err != nil {
			return res, e.fail(logger, n, total, "batch failed", err)
		}
		res.BatchesCommitted++
		res.RecordsCommitted += len(batch)
		offset += len(batch)
		e.metrics.RecordBatch(len(batch))

		logger.Info("commit.batch.ok",
			"batch", n,
			"batches", total,
			"records", len(batch),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		if progress != nil {
			progress(float64(n) / float64(total) * 100)
		}
	}
	return res, nil
}

func (e *Engine) fail(logger *slog.Logger, n, total int, what string, cause error) error {
	e.metrics.RecordBatchFailure()
	logger.Error("commit.batch.failed", "batch", n, "batches", total, "committed", n-1, "error", cause)
	return common.NewStageError(common.ErrCommit, string(constants.StageCommitting),
		fmt.Sprintf("%s %d of %d (%d committed)", what, n, total, n-1), cause)
}
