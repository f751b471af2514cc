package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("engine: worker pool is closed")

// WorkerPool manages a fixed pool of goroutines for per-feature tasks.
// A screening pass over a large matrix submits one closure per feature;
// a fixed pool keeps goroutine churn constant regardless of matrix width.
type WorkerPool struct {
	numWorkers int
	workCh     chan func()
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewWorkerPool creates a worker pool with numWorkers goroutines.
// numWorkers <= 0 defaults to GOMAXPROCS; aggregation is CPU-bound, so
// more workers than cores buys nothing.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	wp := &WorkerPool{
		numWorkers: numWorkers,
		workCh:     make(chan func(), numWorkers*2),
		stopCh:     make(chan struct{}),
	}

	wp.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.stopCh:
			// Drain remaining work before exiting.
			for {
				select {
				case fn, ok := <-wp.workCh:
					if !ok {
						return
					}
					fn()
				default:
					return
				}
			}
		case fn, ok := <-wp.workCh:
			if !ok {
				return
			}
			fn()
		}
	}
}

// NumWorkers returns the pool size.
func (wp *WorkerPool) NumWorkers() int { return wp.numWorkers }

// Submit enqueues a task, blocking while the queue is full.
// Returns ErrPoolClosed after Close.
func (wp *WorkerPool) Submit(fn func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case wp.workCh <- fn:
		return nil
	case <-wp.stopCh:
		return ErrPoolClosed
	}
}

// SubmitWait enqueues a task unless ctx is canceled first.
func (wp *WorkerPool) SubmitWait(ctx context.Context, fn func()) error {
	wp.submitMu.RLock()
	defer wp.submitMu.RUnlock()

	if wp.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case wp.workCh <- fn:
		return nil
	case <-wp.stopCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers after draining queued tasks. Close is
// idempotent and blocks until all workers have exited.
func (wp *WorkerPool) Close() {
	if !wp.closed.CompareAndSwap(false, true) {
		return
	}

	// Block until in-flight Submits have either enqueued or observed closed.
	wp.submitMu.Lock()
	close(wp.stopCh)
	wp.submitMu.Unlock()

	wp.wg.Wait()
}
