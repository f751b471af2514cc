package groupby

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Grouping is an immutable assignment of samples to dense group indexes.
//
// A grouping is built once per analysis run (from bin edges, cluster IDs,
// or arbitrary labels) and then shared, read-only, by any number of
// accumulators. Group sizes are counted at construction time and never
// change afterwards; they are the denominators for all means computed
// against this grouping.
//
// A sample may carry the assignment -1, meaning it is masked out: it
// belongs to no group and contributes to no size or aggregate. Masking is
// how subsets (e.g. one environment at a time) reuse a full-length
// observation vector without copying it.
type Grouping struct {
	assign []int
	sizes  []int
	labels []string
}

// FromAssignments creates a Grouping from explicit per-sample group
// indexes in [0, numGroups). Negative indexes mark masked samples.
// An index >= numGroups is a programming error and fails fast.
func FromAssignments(assign []int, numGroups int) (*Grouping, error) {
	if numGroups <= 0 {
		return nil, fmt.Errorf("groupby: numGroups must be positive, got %d", numGroups)
	}

	sizes := make([]int, numGroups)
	for i, g := range assign {
		if g < 0 {
			continue
		}
		if g >= numGroups {
			return nil, &ErrGroupOutOfRange{Group: g, NumGroups: numGroups, Sample: i}
		}
		sizes[g]++
	}

	cp := make([]int, len(assign))
	copy(cp, assign)

	return &Grouping{assign: cp, sizes: sizes}, nil
}

// FromLabels creates a Grouping from arbitrary comparable labels. Labels
// are mapped to dense group indexes in first-seen order; the mapping is
// returned so callers can translate group indexes back to labels.
func FromLabels[L comparable](labels []L) (*Grouping, map[L]int) {
	index := make(map[L]int)
	assign := make([]int, len(labels))
	var display []string

	for i, l := range labels {
		g, ok := index[l]
		if !ok {
			g = len(index)
			index[l] = g
			display = append(display, fmt.Sprint(l))
		}
		assign[i] = g
	}

	sizes := make([]int, len(index))
	for _, g := range assign {
		sizes[g]++
	}

	return &Grouping{assign: assign, sizes: sizes, labels: display}, index
}

// WithLabels returns a copy of the grouping carrying display labels.
// len(labels) must equal NumGroups.
func (g *Grouping) WithLabels(labels []string) (*Grouping, error) {
	if len(labels) != len(g.sizes) {
		return nil, fmt.Errorf("groupby: got %d labels for %d groups", len(labels), len(g.sizes))
	}
	cp := make([]string, len(labels))
	copy(cp, labels)
	return &Grouping{assign: g.assign, sizes: g.sizes, labels: cp}, nil
}

// Restrict returns a new Grouping in which every sample not contained in
// keep is masked out. Group sizes are recounted over the kept samples.
// The receiver is not modified.
func (g *Grouping) Restrict(keep *roaring.Bitmap) *Grouping {
	assign := make([]int, len(g.assign))
	sizes := make([]int, len(g.sizes))

	for i, gi := range g.assign {
		if gi < 0 || !keep.Contains(uint32(i)) {
			assign[i] = -1
			continue
		}
		assign[i] = gi
		sizes[gi]++
	}

	return &Grouping{assign: assign, sizes: sizes, labels: g.labels}
}

// NumSamples returns the number of samples covered by the grouping,
// including masked ones.
func (g *Grouping) NumSamples() int { return len(g.assign) }

// NumGroups returns the number of groups.
func (g *Grouping) NumGroups() int { return len(g.sizes) }

// Assignment returns the group index of sample i, or -1 if masked.
func (g *Grouping) Assignment(i int) int { return g.assign[i] }

// Sizes returns the per-group sample totals.
// The returned slice is shared and must be treated as read-only.
func (g *Grouping) Sizes() []int { return g.sizes }

// Size returns the number of samples assigned to group gi.
func (g *Grouping) Size(gi int) int { return g.sizes[gi] }

// Labels returns the per-group display labels, or nil if none were set.
// The returned slice is shared and must be treated as read-only.
func (g *Grouping) Labels() []string { return g.labels }

// Label returns the display label for group gi, falling back to the
// decimal index when no labels were set.
func (g *Grouping) Label(gi int) string {
	if g.labels == nil {
		return fmt.Sprintf("%d", gi)
	}
	return g.labels[gi]
}
