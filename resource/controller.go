// Package resource tracks and limits the memory, concurrency, and upload
// bandwidth consumed by batch screening runs.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits for an analysis run.
type Config struct {
	// MemoryLimitBytes is the hard limit for tracked allocations
	// (matrix storage, result tables). If 0, usage is tracked but not
	// enforced.
	MemoryLimitBytes int64

	// MaxConcurrentRuns is the maximum number of screening runs
	// (e.g. per-environment passes) executing at once. If 0, defaults
	// to 1.
	MaxConcurrentRuns int64

	// UploadLimitBytesPerSec caps the throughput of artifact uploads to
	// blob storage. If 0, unlimited.
	UploadLimitBytesPerSec int64
}

// Controller enforces the limits in Config. The zero-value pointer (nil)
// is valid and enforces nothing.
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Concurrency
	runSem *semaphore.Weighted

	// Upload bandwidth
	uploadLimiter *rate.Limiter
}

// NewController creates a Controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}

	c := &Controller{
		cfg:    cfg,
		runSem: semaphore.NewWeighted(cfg.MaxConcurrentRuns),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.UploadLimitBytesPerSec > 0 {
		c.uploadLimiter = rate.NewLimiter(rate.Limit(cfg.UploadLimitBytesPerSec), int(cfg.UploadLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves tracked memory, blocking until the reservation
// fits under the limit or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves tracked memory without blocking.
// Returns false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases a prior reservation.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently tracked memory in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireRun reserves a screening-run slot, blocking while all slots are
// busy.
func (c *Controller) AcquireRun(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.runSem.Acquire(ctx, 1)
}

// TryAcquireRun reserves a screening-run slot without blocking.
func (c *Controller) TryAcquireRun() bool {
	if c == nil {
		return true
	}
	return c.runSem.TryAcquire(1)
}

// ReleaseRun releases a screening-run slot.
func (c *Controller) ReleaseRun() {
	if c == nil {
		return
	}
	c.runSem.Release(1)
}

// UploadBurst returns the largest reservation the upload limiter can
// grant in one wait, or 0 when uploads are unlimited.
func (c *Controller) UploadBurst() int {
	if c == nil || c.uploadLimiter == nil {
		return 0
	}
	return c.uploadLimiter.Burst()
}

// AcquireUpload waits until the upload limiter admits the given number
// of bytes.
func (c *Controller) AcquireUpload(ctx context.Context, bytes int) error {
	if c == nil || c.uploadLimiter == nil {
		return nil
	}
	return c.uploadLimiter.WaitN(ctx, bytes)
}
