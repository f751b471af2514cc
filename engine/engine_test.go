package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRunsAllTasks(t *testing.T) {
	r := NewRunner(4)
	defer r.Close()

	results := make([]int, 100)
	err := r.Run(context.Background(), 100, func(_ context.Context, i int) error {
		results[i] = i * 2
		return nil
	})
	require.NoError(t, err)

	for i, v := range results {
		assert.Equal(t, i*2, v)
	}
}

func TestRunnerZeroTasks(t *testing.T) {
	r := NewRunner(2)
	defer r.Close()

	assert.NoError(t, r.Run(context.Background(), 0, func(context.Context, int) error {
		t.Fatal("task body must not run")
		return nil
	}))
}

func TestRunnerFirstErrorWins(t *testing.T) {
	r := NewRunner(2)
	defer r.Close()

	boom := errors.New("boom")
	var executed atomic.Int64

	err := r.Run(context.Background(), 50, func(_ context.Context, i int) error {
		executed.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})

	require.ErrorIs(t, err, boom)
	// Tasks queued after the failure become no-ops, so not all 50 need
	// to have executed.
	assert.LessOrEqual(t, executed.Load(), int64(50))
}

func TestRunnerContextCancellation(t *testing.T) {
	r := NewRunner(2)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int64
	err := r.Run(ctx, 100, func(ctx context.Context, i int) error {
		if started.Add(1) == 1 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunnerSharedPool(t *testing.T) {
	wp := NewWorkerPool(2)
	defer wp.Close()

	r := NewRunnerWithPool(wp)
	r.Close() // Must leave the shared pool running.

	var n atomic.Int64
	r2 := NewRunnerWithPool(wp)
	require.NoError(t, r2.Run(context.Background(), 10, func(context.Context, int) error {
		n.Add(1)
		return nil
	}))
	assert.Equal(t, int64(10), n.Load())
}

func TestWorkerPoolSubmit(t *testing.T) {
	wp := NewWorkerPool(2)

	done := make(chan struct{})
	require.NoError(t, wp.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	wp.Close()
	assert.ErrorIs(t, wp.Submit(func() {}), ErrPoolClosed)
}

func TestWorkerPoolCloseIdempotent(t *testing.T) {
	wp := NewWorkerPool(1)
	wp.Close()
	wp.Close()
}

func TestWorkerPoolDefaultSize(t *testing.T) {
	wp := NewWorkerPool(0)
	defer wp.Close()
	assert.Greater(t, wp.NumWorkers(), 0)
}

func TestSubmitWaitCanceledContext(t *testing.T) {
	wp := NewWorkerPool(1)
	defer wp.Close()

	// Saturate the queue with slow tasks so SubmitWait has to block.
	block := make(chan struct{})
	defer close(block)
	for i := 0; i < wp.NumWorkers()*2+1; i++ {
		if err := wp.Submit(func() { <-block }); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := wp.SubmitWait(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
