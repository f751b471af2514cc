// Package binning maps continuous per-sample values (latitudes, depths)
// onto uniform bins and builds groupings from the result.
package binning

import (
	"fmt"
	"math"

	"github.com/strataseq/cline/groupby"
)

// Binner assigns continuous values to uniform bins over [Min, Max].
//
// Bins are left-inclusive; the last bin additionally includes Max so the
// upper boundary value is not dropped. Values outside the range map to
// no bin at all (masked), which lets callers keep samples from outside
// the studied gradient in the matrix without them contaminating the
// aggregates.
type Binner struct {
	min   float64
	max   float64
	n     int
	width float64
	abs   bool
}

// Options configures a Binner.
type Options struct {
	// Abs assigns values by their absolute magnitude (e.g. absolute
	// latitude, folding both hemispheres onto one gradient).
	Abs bool
}

// Uniform creates a Binner with n equal-width bins over [min, max].
func Uniform(min, max float64, n int, optFns ...func(o *Options)) (*Binner, error) {
	if n < 2 {
		return nil, fmt.Errorf("binning: need at least 2 bins, got %d", n)
	}
	if !(min < max) {
		return nil, fmt.Errorf("binning: invalid range [%g, %g]", min, max)
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Binner{
		min:   min,
		max:   max,
		n:     n,
		width: (max - min) / float64(n),
		abs:   opts.Abs,
	}, nil
}

// NumBins returns the number of bins.
func (b *Binner) NumBins() int { return b.n }

// Assign returns the bin index for v in [0, NumBins), or -1 when v falls
// outside the range or is NaN.
func (b *Binner) Assign(v float64) int {
	if b.abs {
		v = math.Abs(v)
	}
	if math.IsNaN(v) || v < b.min || v > b.max {
		return -1
	}
	bin := int(math.Floor((v - b.min) / b.width))
	if bin == b.n { // v == max
		bin = b.n - 1
	}
	return bin
}

// Midpoints returns the bin center values, the natural reference axis for
// correlating per-bin aggregates against the gradient.
func (b *Binner) Midpoints() []float64 {
	mids := make([]float64, b.n)
	for i := range mids {
		mids[i] = b.min + (float64(i)+0.5)*b.width
	}
	return mids
}

// Labels returns human-readable interval labels, one per bin.
func (b *Binner) Labels() []string {
	labels := make([]string, b.n)
	for i := range labels {
		lo := b.min + float64(i)*b.width
		hi := lo + b.width
		if i == b.n-1 {
			labels[i] = fmt.Sprintf("[%g,%g]", lo, hi)
		} else {
			labels[i] = fmt.Sprintf("[%g,%g)", lo, hi)
		}
	}
	return labels
}

// Grouping bins the given per-sample values and returns the resulting
// grouping, labeled with the bin intervals.
func (b *Binner) Grouping(values []float64) (*groupby.Grouping, error) {
	assign := make([]int, len(values))
	for i, v := range values {
		assign[i] = b.Assign(v)
	}
	g, err := groupby.FromAssignments(assign, b.n)
	if err != nil {
		return nil, err
	}
	return g.WithLabels(b.Labels())
}
