package commit

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-shalamon/exam-hall-system/internal/common"
	"github.com/john-shalamon/exam-hall-system/internal/entity"
)

type fakeStore struct {
	batches [][]entity.Allocation
	failOn  int // 1-based call number that fails; 0 = never
	err     error
	onCall  func(n int)
}

func (f *fakeStore) UpsertMany(_ context.Context, records []entity.Allocation) error {
	n := len(f.batches) + 1
	if f.onCall != nil {
		f.onCall(n)
	}
	if n == f.failOn {
		return f.err
	}
	f.batches = append(f.batches, append([]entity.Allocation(nil), records...))
	return nil
}

func makeRecords(n int) []entity.Allocation {
	out := make([]entity.Allocation, n)
	for i := range out {
		out[i] = entity.Allocation{
			RegisterNumber: fmt.Sprintf("REG%05d", i+1),
			StudentName:    fmt.Sprintf("Student %d", i+1),
			HallName:       "Main Hall A",
			SeatNumber:     fmt.Sprintf("A%03d", i+1),
			ExamDate:       "2023-05-15",
			ExamTime:       "09:00 AM",
		}
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n     int
		size  int
		sizes []int
	}{
		{0, 100, nil},
		{1, 100, []int{1}},
		{100, 100, []int{100}},
		{101, 100, []int{100, 1}},
		{250, 100, []int{100, 100, 50}},
		{7, 3, []int{3, 3, 1}},
		{5, 0, []int{5}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_by_%d", tt.n, tt.size), func(t *testing.T) {
			var got []int
			for _, b := range Partition(makeRecords(tt.n), tt.size) {
				got = append(got, len(b))
			}
			assert.Equal(t, tt.sizes, got)
		})
	}
}

func TestCommit_BatchingArithmetic(t *testing.T) {
	store := &fakeStore{}
	e := NewEngine(store, nil)
	records := makeRecords(250)

	var progress []float64
	res, err := e.Commit(context.Background(), records, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0], 100)
	assert.Len(t, store.batches[1], 100)
	assert.Len(t, store.batches[2], 50)
	assert.Equal(t, "REG00001", store.batches[0][0].RegisterNumber)
	assert.Equal(t, "REG00101", store.batches[1][0].RegisterNumber)
	assert.Equal(t, "REG00250", store.batches[2][49].RegisterNumber)

	require.Len(t, progress, 3)
	assert.InDelta(t, 100.0/3, progress[0], 1e-9)
	assert.InDelta(t, 200.0/3, progress[1], 1e-9)
	assert.Equal(t, 100.0, progress[2])

	assert.Equal(t, Result{Batches: 3, BatchesCommitted: 3, Records: 250, RecordsCommitted: 250}, res)
}

func TestCommit_ZeroRecordsIsNoop(t *testing.T) {
	store := &fakeStore{}
	called := false
	res, err := NewEngine(store, nil).Commit(context.Background(), nil, func(float64) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
	assert.Empty(t, store.batches)
	assert.Equal(t, Result{}, res)
}

func TestCommit_StopsAtFirstFailure(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	store := &fakeStore{failOn: 2, err: cause}

	var progress []float64
	res, err := NewEngine(store, nil).Commit(context.Background(), makeRecords(250), func(p float64) { progress = append(progress, p) })
	require.Error(t, err)

	assert.ErrorIs(t, err, common.ErrCommit)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "committing", common.StageOf(err))
	assert.Contains(t, err.Error(), "batch failed 2 of 3")
	assert.Contains(t, err.Error(), cause.Error())

	// batch 1 kept, batch 3 never attempted
	require.Len(t, store.batches, 1)
	assert.Equal(t, Result{Batches: 3, BatchesCommitted: 1, Records: 250, RecordsCommitted: 100}, res)
	require.Len(t, progress, 1)
	assert.InDelta(t, 100.0/3, progress[0], 1e-9)
}

func TestCommit_AcceptanceCheck(t *testing.T) {
	records := makeRecords(150)
	records[120].StudentName = ""

	store := &fakeStore{}
	res, err := NewEngine(store, nil).Commit(context.Background(), records, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCommit)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "record 121")
	assert.Len(t, store.batches, 1)
	assert.Equal(t, 1, res.BatchesCommitted)

	store = &fakeStore{}
	_, err = NewEngine(store, nil, WithAcceptanceCheck(false)).Commit(context.Background(), records, nil)
	require.NoError(t, err)
	assert.Len(t, store.batches, 2)
}

func TestCommit_BlankKeyRejected(t *testing.T) {
	records := makeRecords(1)
	records[0].RegisterNumber = "   "
	store := &fakeStore{}
	_, err := NewEngine(store, nil).Commit(context.Background(), records, nil)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, store.batches)
}

func TestCommit_CancellationKeepsCommittedBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &fakeStore{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}

	res, err := NewEngine(store, nil, WithBatchSize(10)).Commit(ctx, makeRecords(40), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, common.ErrCommit)
	assert.Equal(t, 2, res.BatchesCommitted)
	assert.Len(t, store.batches, 2)
}

func TestEngine_BatchSizeOption(t *testing.T) {
	assert.Equal(t, 100, NewEngine(&fakeStore{}, nil).BatchSize())
	assert.Equal(t, 25, NewEngine(&fakeStore{}, nil, WithBatchSize(25)).BatchSize())
	assert.Equal(t, 100, NewEngine(&fakeStore{}, nil, WithBatchSize(-1)).BatchSize())
}
