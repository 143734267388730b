// Package async funnels ingestion runs through a bounded queue served by a
// single worker, so at most one run commits at a time.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/metrics"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue once Shutdown has started.
var ErrQueueClosed = errors.New("run queue is shutting down")

// Executor runs one source to completion; *pipeline.Processor implements it.
type Executor interface {
	Execute(ctx context.Context, run *pipeline.Run, src pipeline.Source) (pipeline.Summary, error)
}

type job struct {
	run *pipeline.Run
	src pipeline.Source
}

type RunQueue struct {
	exec    Executor
	logger  *slog.Logger
	metrics *metrics.Recorder
	timeout time.Duration
	keep    int

	ch   chan job
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	// sendMu is read-held by senders; Shutdown takes it to close ch.
	sendMu sync.RWMutex

	mu     sync.Mutex
	closed bool
	runs   map[uuid.UUID]*pipeline.Run
	order  []uuid.UUID
}

type Option func(*RunQueue)

func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan job, n)
		}
	}
}

func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithHistory bounds how many runs stay queryable through Get.
func WithHistory(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.keep = n
		}
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(q *RunQueue) { q.metrics = m }
}

func NewRunQueue(exec Executor, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		exec:    exec,
		logger:  logger,
		timeout: 5 * time.Minute,
		keep:    500,
		ch:      make(chan job, 64),
		done:    make(chan struct{}),
		runs:    make(map[uuid.UUID]*pipeline.Run),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("worker started")
			for j := range q.ch {
				q.metrics.SetQueueDepth(len(q.ch))
				q.process(j)
			}
			q.logger.Info("worker stopped")
		}()
	})
}

func (q *RunQueue) process(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithRunID(ctx, j.run.ID().String())

	sum, err := q.exec.Execute(ctx, j.run, j.src)
	if err != nil {
		q.logger.Error("queued run failed", "run_id", j.run.ID(), "source", j.src.Name, "error", err)
		return
	}
	q.logger.Info("queued run finished", "run_id", j.run.ID(), "source", j.src.Name, "records", sum.Records)
}

// Enqueue registers a new run for src and hands it to the worker. It blocks
// when the queue is full until there is room, ctx is done or Shutdown starts.
// Get stays available while a sender waits.
func (q *RunQueue) Enqueue(ctx context.Context, src pipeline.Source, sink pipeline.ProgressSink) (*pipeline.Run, error) {
	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	select {
	case <-q.done:
		q.logger.Warn("cannot enqueue: queue is shutting down", "source", src.Name)
		return nil, ErrQueueClosed
	default:
	}

	run := pipeline.NewRun(src.Name, sink)
	q.mu.Lock()
	q.remember(run)
	q.mu.Unlock()

	j := job{run: run, src: src}
	select {
	case q.ch <- j:
	default:
		q.logger.Warn("queue full, applying backpressure", "source", src.Name)
		select {
		case q.ch <- j:
		case <-ctx.Done():
			q.drop(run.ID())
			return nil, ctx.Err()
		case <-q.done:
			q.drop(run.ID())
			return nil, ErrQueueClosed
		}
	}
	q.metrics.SetQueueDepth(len(q.ch))
	q.logger.Info("queued run", "run_id", run.ID(), "source", src.Name)
	return run, nil
}

// Get returns a known run by id.
func (q *RunQueue) Get(id uuid.UUID) (*pipeline.Run, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.runs[id]
	return r, ok
}

func (q *RunQueue) remember(run *pipeline.Run) {
	q.runs[run.ID()] = run
	q.order = append(q.order, run.ID())
	for len(q.order) > q.keep {
		delete(q.runs, q.order[0])
		q.order = q.order[1:]
	}
}

func (q *RunQueue) drop(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.runs, id)
	for i, v := range q.order {
		if v == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Shutdown stops accepting runs and waits for queued ones to drain or ctx to end.
// Senders blocked on a full queue give up with ErrQueueClosed.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-drained:
		q.logger.Info("queue drained, shutdown complete")
	}
}
