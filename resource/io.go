package resource

import (
	"context"
	"io"
)

// LimitedWriter wraps an io.Writer with the controller's upload rate
// limit. Artifact uploads stream through this so large matrix blobs do
// not saturate shared links.
type LimitedWriter struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewLimitedWriter creates a rate-limited writer. A nil controller
// passes writes through untouched.
func NewLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *LimitedWriter {
	return &LimitedWriter{w: w, rc: rc, ctx: ctx}
}

// Write splits the buffer into bursts the limiter can grant. A single
// reservation may never exceed the limiter's burst, so buffers larger
// than the configured rate are throttled across multiple waits instead
// of failing outright.
func (w *LimitedWriter) Write(p []byte) (int, error) {
	burst := w.rc.UploadBurst()
	if burst <= 0 {
		return w.w.Write(p)
	}
	written := 0
	for written < len(p) {
		n := len(p) - written
		if n > burst {
			n = burst
		}
		if err := w.rc.AcquireUpload(w.ctx, n); err != nil {
			return written, err
		}
		m, err := w.w.Write(p[written : written+n])
		written += m
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
