// Package engine runs per-feature screening tasks over a fixed worker
// pool.
//
// Screening is embarrassingly parallel across features: every task
// aggregates one feature column and computes one correlation. The engine
// owns the fan-out/join mechanics so callers only provide the per-index
// task body; ordering of results is the caller's concern (tasks receive
// their index and write to pre-sized slots).
package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runner executes indexed tasks in parallel and joins on completion.
type Runner struct {
	wp      *WorkerPool
	ownPool bool
}

// NewRunner creates a Runner with its own worker pool of the given size
// (<= 0 defaults to GOMAXPROCS). Close releases the pool.
func NewRunner(workers int) *Runner {
	return &Runner{wp: NewWorkerPool(workers), ownPool: true}
}

// NewRunnerWithPool creates a Runner sharing an externally owned pool.
func NewRunnerWithPool(wp *WorkerPool) *Runner {
	return &Runner{wp: wp}
}

// Close shuts down an owned worker pool. Shared pools are left running.
func (r *Runner) Close() {
	if r.ownPool {
		r.wp.Close()
	}
}

// Run executes fn(ctx, i) for every i in [0, n), using the pool's
// workers, and blocks until all tasks finish or the context is canceled.
//
// The first task error is returned; remaining queued tasks become no-ops
// once an error or cancellation is observed. fn must confine its writes
// to per-index state: tasks for distinct indexes run concurrently.
func (r *Runner) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		firstErr atomic.Value
		failed   atomic.Bool
	)

	setErr := func(err error) {
		if failed.CompareAndSwap(false, true) {
			firstErr.Store(err)
		}
	}

	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		err := r.wp.SubmitWait(ctx, func() {
			defer wg.Done()
			if failed.Load() || ctx.Err() != nil {
				return
			}
			if err := fn(ctx, i); err != nil {
				setErr(err)
			}
		})
		if err != nil {
			// The task never reached the queue; account for it here and
			// stop submitting.
			wg.Done()
			setErr(err)
			for j := i + 1; j < n; j++ {
				wg.Done()
			}
			break
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil && firstErr.Load() == nil {
		return err
	}
	if err, ok := firstErr.Load().(error); ok {
		return err
	}
	return nil
}
