// Package metrics exposes Prometheus instruments for ingestion runs.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the ingestion metrics.
type Recorder struct {
	namespace string
	registry  prometheus.Registerer

	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	recordsCommitted prometheus.Counter
	batchesCommitted prometheus.Counter
	batchFailures    prometheus.Counter
	ocrConfidence    prometheus.Histogram
	queueDepth       prometheus.Gauge
}

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		if namespace != "" {
			r.namespace = namespace
		}
	}
}

// WithRegistry registers metrics on reg instead of the default registerer.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(r *Recorder) {
		if reg != nil {
			r.registry = reg
		}
	}
}

func New(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "examhall",
		registry:  prometheus.DefaultRegisterer,
	}
	for _, o := range opts {
		o(r)
	}

	auto := promauto.With(r.registry)
	r.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "runs_total",
		Help:      "Ingestion runs by source format and outcome.",
	}, []string{"source", "outcome"})
	r.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of ingestion runs.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	r.recordsCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "records_committed_total",
		Help:      "Allocation records upserted.",
	})
	r.batchesCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "batches_committed_total",
		Help:      "Batches committed.",
	})
	r.batchFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Name:      "batch_failures_total",
		Help:      "Batches that failed to commit.",
	})
	r.ocrConfidence = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Name:      "ocr_confidence",
		Help:      "Blended OCR confidence per recognized image.",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
	})
	r.queueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Name:      "queue_depth",
		Help:      "Runs waiting in the ingestion queue.",
	})
	return r
}

func (r *Recorder) RecordRun(source, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(source, outcome).Inc()
	r.runDuration.Observe(d.Seconds())
}

func (r *Recorder) RecordBatch(records int) {
	if r == nil {
		return
	}
	r.batchesCommitted.Inc()
	r.recordsCommitted.Add(float64(records))
}

func (r *Recorder) RecordBatchFailure() {
	if r == nil {
		return
	}
	r.batchFailures.Inc()
}

func (r *Recorder) RecordOCRConfidence(c float32) {
	if r == nil {
		return
	}
	r.ocrConfidence.Observe(float64(c))
}

func (r *Recorder) SetQueueDepth(n int) {
	if r == nil {
		return
	}
	r.queueDepth.Set(float64(n))
}
