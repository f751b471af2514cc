package groupby

import (
	"fmt"
	"math"
)

// Transform selects how individual observations enter the aggregate.
type Transform uint8

const (
	// TransformLinear aggregates raw observation values.
	TransformLinear Transform = iota

	// TransformLog10 aggregates log10(value + p) with a per-call
	// pseudo-count p = min(non-zero values) / 10. Implicit zeros
	// contribute log10(p) each, folded in analytically per group.
	TransformLog10
)

func (t Transform) String() string {
	switch t {
	case TransformLinear:
		return "linear"
	case TransformLog10:
		return "log10"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// pseudoCountDivisor derives the log10 pseudo-count from the smallest
// non-zero observation.
const pseudoCountDivisor = 10

// Accumulator holds reusable per-group aggregation buffers for one
// Grouping.
//
// An Accumulator is NOT thread-safe. It is intended to be owned by a
// single goroutine and reused across many sequential Accumulate calls
// (one per feature column). Workers running in parallel must each own
// their own instance; the underlying Grouping is read-only and safe to
// share. Use Pool to recycle instances across goroutines.
type Accumulator struct {
	grouping *Grouping

	sums   []float64
	counts []int
	means  []float64
}

// NewAccumulator creates an Accumulator sized for g.
func NewAccumulator(g *Grouping) *Accumulator {
	n := g.NumGroups()
	return &Accumulator{
		grouping: g,
		sums:     make([]float64, n),
		counts:   make([]int, n),
		means:    make([]float64, n),
	}
}

// Grouping returns the grouping this accumulator aggregates over.
func (a *Accumulator) Grouping() *Grouping { return a.grouping }

// Reset zeroes the sum/count/mean buffers without freeing them.
// Accumulate resets implicitly; an explicit Reset is only needed when
// handing a dirty accumulator to another owner.
func (a *Accumulator) Reset() {
	for g := range a.sums {
		a.sums[g] = 0
		a.counts[g] = 0
		a.means[g] = 0
	}
}

// Accumulate resets the buffers and aggregates vec into them in a single
// pass over the present entries.
//
// After a successful call, Sums, Counts and Means hold the per-group
// results: Counts the number of non-zero observations seen per group,
// Means the group sum divided by the total group size (so implicit zeros
// weigh in). A group with size zero has a NaN mean; callers must treat
// it as missing.
func (a *Accumulator) Accumulate(vec Vector, transform Transform) error {
	if vec == nil {
		return fmt.Errorf("groupby: nil vector")
	}
	if vec.Len() != a.grouping.NumSamples() {
		return &ErrLengthMismatch{Want: a.grouping.NumSamples(), Got: vec.Len()}
	}

	a.Reset()

	switch transform {
	case TransformLinear:
		if err := a.accumulateLinear(vec); err != nil {
			return err
		}
	case TransformLog10:
		if err := a.accumulateLog10(vec); err != nil {
			return err
		}
	default:
		return &ErrUnknownTransform{Transform: transform}
	}

	a.finalize()
	return nil
}

func (a *Accumulator) accumulateLinear(vec Vector) error {
	assign := a.grouping.assign
	for i, v := range vec.NonZero() {
		if i < 0 || i >= len(assign) {
			return &ErrIndexOutOfRange{Index: i, Len: len(assign)}
		}
		g := assign[i]
		if g < 0 {
			continue
		}
		a.sums[g] += v
		a.counts[g]++
	}
	return nil
}

func (a *Accumulator) accumulateLog10(vec Vector) error {
	assign := a.grouping.assign

	// The pseudo-count depends on the smallest present value among the
	// samples that belong to a group, so the participating entries are
	// scanned before any aggregation happens. Masked samples must not
	// shift the pseudo-count.
	minNonZero := math.Inf(1)
	for i, v := range vec.NonZero() {
		if i < 0 || i >= len(assign) {
			return &ErrIndexOutOfRange{Index: i, Len: len(assign)}
		}
		if assign[i] < 0 {
			continue
		}
		if v < 0 {
			return fmt.Errorf("%w: %g at sample %d", ErrNegativeValue, v, i)
		}
		if v < minNonZero {
			minNonZero = v
		}
	}
	if math.IsInf(minNonZero, 1) {
		return ErrNoNonZero
	}

	p := minNonZero / pseudoCountDivisor
	for i, v := range vec.NonZero() {
		g := assign[i]
		if g < 0 {
			continue
		}
		a.sums[g] += math.Log10(v + p)
		a.counts[g]++
	}

	// Every implicit zero in a group contributes the same constant
	// log10(0 + p), so the whole batch folds into one multiply-add.
	logP := math.Log10(p)
	for g, size := range a.grouping.sizes {
		if implicit := size - a.counts[g]; implicit > 0 {
			a.sums[g] += logP * float64(implicit)
		}
	}
	return nil
}

func (a *Accumulator) finalize() {
	for g, size := range a.grouping.sizes {
		if size == 0 {
			a.means[g] = math.NaN()
			continue
		}
		a.means[g] = a.sums[g] / float64(size)
	}
}

// Sums returns the per-group sums of the last Accumulate call.
// The returned slice is reused by the next call; copy it to retain.
func (a *Accumulator) Sums() []float64 { return a.sums }

// Counts returns the per-group non-zero observation counts of the last
// Accumulate call. The returned slice is reused by the next call.
func (a *Accumulator) Counts() []int { return a.counts }

// Means returns the per-group means of the last Accumulate call, with
// NaN marking empty groups. The returned slice is reused by the next call.
func (a *Accumulator) Means() []float64 { return a.means }

// ObservedGroups returns the number of groups with at least one non-zero
// observation in the last Accumulate call.
func (a *Accumulator) ObservedGroups() int {
	n := 0
	for _, c := range a.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// TotalObserved returns the total number of non-zero observations across
// all groups in the last Accumulate call.
func (a *Accumulator) TotalObserved() int {
	n := 0
	for _, c := range a.counts {
		n += c
	}
	return n
}
