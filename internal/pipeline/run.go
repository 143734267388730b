package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/common"
)

// ProgressSink receives stage-tagged progress in [0, 100]: OCR ticks while
// recognizing, batch boundaries while committing, and done/100 on success.
type ProgressSink func(stage constants.Stage, percent float64)

// Run is the process-local state of one ingestion invocation. It is safe for
// concurrent reads while the processor advances it.
type Run struct {
	mu sync.Mutex

	id           uuid.UUID
	source       string
	format       constants.Format
	contentHash  string
	size         int
	stage        constants.Stage
	progress     float64
	records      int
	batchesDone  int
	batchesTotal int
	err          error

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time

	sink ProgressSink
}

// RunStatus is an immutable snapshot of a Run.
type RunStatus struct {
	ID           string           `json:"id"`
	Source       string           `json:"source"`
	Format       constants.Format `json:"format,omitempty"`
	ContentHash  string           `json:"content_hash,omitempty"`
	Size         int              `json:"size_bytes,omitempty"`
	Stage        constants.Stage  `json:"stage"`
	Progress     float64          `json:"progress"`
	Records      int              `json:"records"`
	BatchesDone  int              `json:"batches_done"`
	BatchesTotal int              `json:"batches_total"`
	Error        string           `json:"error,omitempty"`
	ErrorCode    string           `json:"error_code,omitempty"`
	ErrorStage   string           `json:"error_stage,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
}

// NewRun creates a queued run for the named source. sink may be nil.
func NewRun(source string, sink ProgressSink) *Run {
	return &Run{
		id:        uuid.New(),
		source:    source,
		stage:     constants.StageQueued,
		createdAt: time.Now().UTC(),
		sink:      sink,
	}
}

func (r *Run) ID() uuid.UUID { return r.id }

// Err returns the first error the run hit, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RunStatus{
		ID:           r.id.String(),
		Source:       r.source,
		Format:       r.format,
		ContentHash:  r.contentHash,
		Size:         r.size,
		Stage:        r.stage,
		Progress:     r.progress,
		Records:      r.records,
		BatchesDone:  r.batchesDone,
		BatchesTotal: r.batchesTotal,
		CreatedAt:    r.createdAt,
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		st.StartedAt = &t
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		st.FinishedAt = &t
	}
	if r.err != nil {
		st.Error = r.err.Error()
		var ae *common.AppError
		if errors.As(r.err, &ae) {
			st.ErrorCode = ae.Code
			st.ErrorStage = ae.Stage
		}
	}
	return st
}

func (r *Run) start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		r.startedAt = time.Now().UTC()
	}
}

func (r *Run) setStage(s constants.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stage != s {
		r.stage = s
		r.progress = 0
	}
}

func (r *Run) setSource(format constants.Format, hash string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.format = format
	if hash != "" {
		r.contentHash = hash
		r.size = size
	}
}

func (r *Run) setRecords(records, batches int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
	r.batchesTotal = batches
}

// report records progress for the current stage and forwards it to the sink.
// Values lower than the last one reported for the stage are ignored.
func (r *Run) report(s constants.Stage, pct float64) {
	r.mu.Lock()
	if r.err != nil || (r.stage == s && pct < r.progress) {
		r.mu.Unlock()
		return
	}
	r.stage = s
	r.progress = pct
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink(s, pct)
	}
}

func (r *Run) batchCommitted(pct float64) {
	r.mu.Lock()
	r.batchesDone++
	r.mu.Unlock()
	r.report(constants.StageCommitting, pct)
}

// fail keeps only the first error; progress reporting stops afterwards.
func (r *Run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
	r.stage = constants.StageFailed
	r.finishedAt = time.Now().UTC()
}

func (r *Run) finish() {
	r.mu.Lock()
	r.finishedAt = time.Now().UTC()
	r.mu.Unlock()
	r.report(constants.StageDone, 100)
}
