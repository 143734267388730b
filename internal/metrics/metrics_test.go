package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithRegistry(reg), WithNamespace("test"))

	r.RecordRun("delimited-text", "ok", 2*time.Second)
	r.RecordRun("delimited-text", "ok", time.Second)
	r.RecordBatch(100)
	r.RecordBatch(50)
	r.RecordBatchFailure()
	r.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("delimited-text", "ok")))
	assert.Equal(t, 150.0, testutil.ToFloat64(r.recordsCommitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.batchesCommitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.batchFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.queueDepth))

	n, err := testutil.GatherAndCount(reg, "test_runs_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordRun("image", "failed", time.Millisecond)
		r.RecordBatch(1)
		r.RecordBatchFailure()
		r.RecordOCRConfidence(0.5)
		r.SetQueueDepth(0)
	})
}
