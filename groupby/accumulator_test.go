package groupby

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGrouping(t *testing.T, assign []int, numGroups int) *Grouping {
	t.Helper()
	g, err := FromAssignments(assign, numGroups)
	require.NoError(t, err)
	return g
}

func TestAccumulateLinear(t *testing.T) {
	g := mustGrouping(t, []int{0, 0, 1, 1, 1}, 2)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{1, 2, 0, 3, 4}, TransformLinear)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, 7}, acc.Sums())
	assert.Equal(t, []int{2, 2}, acc.Counts())
	assert.Equal(t, []float64{1.5, 7.0 / 3.0}, acc.Means())
	assert.Equal(t, 2, acc.ObservedGroups())
	assert.Equal(t, 4, acc.TotalObserved())
}

func TestAccumulateMassConservation(t *testing.T) {
	g := mustGrouping(t, []int{0, 1, 2, 0, 1, 2, 0, 1}, 3)
	acc := NewAccumulator(g)

	values := Dense{0.5, 0, 3.25, 1.75, 2, 0, 0, 4.5}
	require.NoError(t, acc.Accumulate(values, TransformLinear))

	var total float64
	for _, v := range values {
		total += v
	}

	var recovered float64
	for gi, mean := range acc.Means() {
		recovered += mean * float64(g.Size(gi))
	}
	assert.InDelta(t, total, recovered, 1e-12)
}

func TestAccumulateIdempotent(t *testing.T) {
	g := mustGrouping(t, []int{0, 1, 0, 1}, 2)
	acc := NewAccumulator(g)

	require.NoError(t, acc.Accumulate(Dense{1, 2, 3, 4}, TransformLinear))
	first := append([]float64(nil), acc.Means()...)

	// A different column in between must not leak into the next result.
	require.NoError(t, acc.Accumulate(Dense{9, 9, 9, 9}, TransformLinear))
	require.NoError(t, acc.Accumulate(Dense{1, 2, 3, 4}, TransformLinear))

	assert.Equal(t, first, acc.Means())
}

func TestAccumulateSparseDenseEquivalence(t *testing.T) {
	g := mustGrouping(t, []int{0, 1, 2, 1, 0, 2}, 3)

	dense := Dense{0, 1.5, 0, 2.5, 0, 3.5}
	sparse := Sparse{
		Index: []int32{1, 3, 5},
		Value: []float64{1.5, 2.5, 3.5},
		N:     6,
	}

	da := NewAccumulator(g)
	sa := NewAccumulator(g)
	require.NoError(t, da.Accumulate(dense, TransformLinear))
	require.NoError(t, sa.Accumulate(sparse, TransformLinear))

	assert.Equal(t, da.Sums(), sa.Sums())
	assert.Equal(t, da.Counts(), sa.Counts())
	assert.Equal(t, da.Means(), sa.Means())
}

func TestAccumulateLog10PseudoCount(t *testing.T) {
	// One group of size 4 with values [0, 0, 4, 0].
	// p = 4/10, so the group sum is log10(4 + 0.4) + 3*log10(0.4).
	g := mustGrouping(t, []int{0, 0, 0, 0}, 1)
	acc := NewAccumulator(g)

	require.NoError(t, acc.Accumulate(Dense{0, 0, 4, 0}, TransformLog10))

	want := math.Log10(4.4) + 3*math.Log10(0.4)
	assert.InDelta(t, want, acc.Sums()[0], 1e-12)
	assert.InDelta(t, want/4, acc.Means()[0], 1e-12)
	assert.Equal(t, 1, acc.Counts()[0])
}

func TestAccumulateLog10PseudoCountIgnoresMasked(t *testing.T) {
	// The masked sample holds the smallest non-zero value; the
	// pseudo-count must come from the smallest value inside a group.
	// p = 4/10, so the group sum is log10(4 + 0.4) + 2*log10(0.4).
	g := mustGrouping(t, []int{0, -1, 0, 0}, 1)
	acc := NewAccumulator(g)

	require.NoError(t, acc.Accumulate(Dense{0, 0.001, 4, 0}, TransformLog10))

	want := math.Log10(4.4) + 2*math.Log10(0.4)
	assert.InDelta(t, want, acc.Sums()[0], 1e-12)
	assert.Equal(t, 1, acc.Counts()[0])
}

func TestAccumulateLog10OnlyMaskedNonZero(t *testing.T) {
	// Every non-zero value falls on a masked sample: within the groups
	// the column is all zero.
	g := mustGrouping(t, []int{0, -1, 0}, 1)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{0, 7, 0}, TransformLog10)
	assert.ErrorIs(t, err, ErrNoNonZero)
}

func TestAccumulateLog10NoNonZero(t *testing.T) {
	g := mustGrouping(t, []int{0, 0, 1}, 2)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{0, 0, 0}, TransformLog10)
	assert.ErrorIs(t, err, ErrNoNonZero)
}

func TestAccumulateLog10NegativeValue(t *testing.T) {
	g := mustGrouping(t, []int{0, 0}, 1)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{1, -2}, TransformLog10)
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestAccumulateLengthMismatch(t *testing.T) {
	g := mustGrouping(t, []int{0, 1}, 2)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{1, 2, 3}, TransformLinear)

	var lm *ErrLengthMismatch
	require.ErrorAs(t, err, &lm)
	assert.Equal(t, 2, lm.Want)
	assert.Equal(t, 3, lm.Got)
}

func TestAccumulateUnknownTransform(t *testing.T) {
	g := mustGrouping(t, []int{0}, 1)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Dense{1}, Transform(42))

	var ut *ErrUnknownTransform
	assert.ErrorAs(t, err, &ut)
}

func TestAccumulateEmptyGroupMeanNaN(t *testing.T) {
	// Group 1 has no samples at all.
	g := mustGrouping(t, []int{0, 0, 2}, 3)
	acc := NewAccumulator(g)

	require.NoError(t, acc.Accumulate(Dense{1, 2, 3}, TransformLinear))

	means := acc.Means()
	assert.True(t, math.IsNaN(means[1]))
	assert.Equal(t, 1.5, means[0])
	assert.Equal(t, 3.0, means[2])
}

func TestAccumulateMaskedSamples(t *testing.T) {
	g := mustGrouping(t, []int{0, -1, 0, -1}, 1)
	acc := NewAccumulator(g)

	require.NoError(t, acc.Accumulate(Dense{1, 100, 3, 100}, TransformLinear))

	assert.Equal(t, 2, g.Size(0))
	assert.Equal(t, []float64{4}, acc.Sums())
	assert.Equal(t, []float64{2}, acc.Means())
}

func TestAccumulateSparseIndexOutOfRange(t *testing.T) {
	g := mustGrouping(t, []int{0, 0}, 1)
	acc := NewAccumulator(g)

	err := acc.Accumulate(Sparse{Index: []int32{5}, Value: []float64{1}, N: 2}, TransformLinear)

	var ir *ErrIndexOutOfRange
	assert.ErrorAs(t, err, &ir)
}

func TestPoolReuse(t *testing.T) {
	g := mustGrouping(t, []int{0, 1, 0, 1}, 2)
	p := NewPool(g)

	a := p.Acquire()
	require.NoError(t, a.Accumulate(Dense{1, 2, 3, 4}, TransformLinear))
	p.Release(a)

	b := p.Acquire()
	// A recycled accumulator must come back reset.
	assert.Equal(t, []float64{0, 0}, b.Sums())
	assert.Equal(t, []int{0, 0}, b.Counts())
	p.Release(b)
}

func TestPoolRejectsForeignAccumulator(t *testing.T) {
	g1 := mustGrouping(t, []int{0, 1}, 2)
	g2 := mustGrouping(t, []int{0, 0}, 1)

	p := NewPool(g1)
	foreign := NewAccumulator(g2)

	// Must be a no-op; the next Acquire still yields a g1-sized instance.
	p.Release(foreign)
	a := p.Acquire()
	assert.Equal(t, 2, a.Grouping().NumGroups())
}
