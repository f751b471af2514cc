// Package matrix provides a columnar sparse feature-by-sample abundance
// matrix.
//
// Rows are samples, columns are features. Non-zero entries are stored
// per feature (compressed sparse column layout), and per-feature sample
// presence is tracked with a Roaring bitmap for fast prevalence counts
// and subset intersections.
package matrix

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/strataseq/cline/groupby"
)

// Entry is one non-zero observation for a feature.
type Entry struct {
	Sample int
	Value  float64
}

// Matrix is an immutable sparse feature-by-sample matrix with labeled
// axes. K is the feature label type (taxon ID, gene ID, cluster name).
//
// A Matrix is safe for concurrent reads once built.
type Matrix[K comparable] struct {
	features []K
	findex   map[K]int
	samples  []string

	colptr  []int
	rows    []int32
	vals    []float64
	present []*roaring.Bitmap
}

// Builder assembles a Matrix column by column.
type Builder[K comparable] struct {
	samples  []string
	features []K
	findex   map[K]int
	cols     [][]Entry
}

// NewBuilder creates a Builder over the given sample IDs.
func NewBuilder[K comparable](samples []string) *Builder[K] {
	return &Builder[K]{
		samples: samples,
		findex:  make(map[K]int),
	}
}

// Add appends non-zero entries for a feature column. Repeated calls for
// the same feature accumulate entries. Entries with a zero value are
// dropped; sample positions must lie in [0, len(samples)).
func (b *Builder[K]) Add(feature K, entries ...Entry) error {
	j, ok := b.findex[feature]
	if !ok {
		j = len(b.features)
		b.findex[feature] = j
		b.features = append(b.features, feature)
		b.cols = append(b.cols, nil)
	}

	for _, e := range entries {
		if e.Sample < 0 || e.Sample >= len(b.samples) {
			return fmt.Errorf("matrix: sample index %d out of range [0, %d)", e.Sample, len(b.samples))
		}
		if e.Value == 0 {
			continue
		}
		b.cols[j] = append(b.cols[j], e)
	}
	return nil
}

// Build finalizes the Builder into an immutable Matrix.
func (b *Builder[K]) Build() *Matrix[K] {
	nnz := 0
	for _, col := range b.cols {
		nnz += len(col)
	}

	m := &Matrix[K]{
		features: b.features,
		findex:   b.findex,
		samples:  b.samples,
		colptr:   make([]int, len(b.features)+1),
		rows:     make([]int32, 0, nnz),
		vals:     make([]float64, 0, nnz),
		present:  make([]*roaring.Bitmap, len(b.features)),
	}

	for j, col := range b.cols {
		sort.Slice(col, func(a, b int) bool { return col[a].Sample < col[b].Sample })

		bm := roaring.New()
		for _, e := range col {
			m.rows = append(m.rows, int32(e.Sample))
			m.vals = append(m.vals, e.Value)
			bm.Add(uint32(e.Sample))
		}
		m.present[j] = bm
		m.colptr[j+1] = len(m.rows)
	}

	return m
}

// FromDense builds a Matrix from a dense sample-by-feature table:
// data[i][j] is the observation of feature j in sample i. Zeros are not
// materialized.
func FromDense[K comparable](features []K, samples []string, data [][]float64) (*Matrix[K], error) {
	if len(data) != len(samples) {
		return nil, fmt.Errorf("matrix: got %d data rows for %d samples", len(data), len(samples))
	}

	b := NewBuilder[K](samples)
	for j, f := range features {
		var entries []Entry
		for i := range data {
			if len(data[i]) != len(features) {
				return nil, fmt.Errorf("matrix: sample %d has %d values, want %d", i, len(data[i]), len(features))
			}
			if v := data[i][j]; v != 0 {
				entries = append(entries, Entry{Sample: i, Value: v})
			}
		}
		if err := b.Add(f, entries...); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// NumFeatures returns the number of feature columns.
func (m *Matrix[K]) NumFeatures() int { return len(m.features) }

// NumSamples returns the number of sample rows.
func (m *Matrix[K]) NumSamples() int { return len(m.samples) }

// Features returns the feature labels in column order.
// The returned slice is shared and must be treated as read-only.
func (m *Matrix[K]) Features() []K { return m.features }

// Samples returns the sample IDs in row order.
// The returned slice is shared and must be treated as read-only.
func (m *Matrix[K]) Samples() []string { return m.samples }

// FeatureIndex returns the column index of feature, or false if absent.
func (m *Matrix[K]) FeatureIndex(feature K) (int, bool) {
	j, ok := m.findex[feature]
	return j, ok
}

// ColumnAt returns the sparse observation vector of column j. The
// returned vector aliases the matrix storage and must not be mutated.
func (m *Matrix[K]) ColumnAt(j int) groupby.Sparse {
	lo, hi := m.colptr[j], m.colptr[j+1]
	return groupby.Sparse{
		Index: m.rows[lo:hi],
		Value: m.vals[lo:hi],
		N:     len(m.samples),
	}
}

// Column returns the sparse observation vector of the given feature.
func (m *Matrix[K]) Column(feature K) (groupby.Sparse, error) {
	j, ok := m.findex[feature]
	if !ok {
		return groupby.Sparse{}, fmt.Errorf("matrix: unknown feature %v", feature)
	}
	return m.ColumnAt(j), nil
}

// Presence returns the set of samples with a non-zero observation for
// column j. The returned bitmap is shared and must be treated as
// read-only.
func (m *Matrix[K]) Presence(j int) *roaring.Bitmap { return m.present[j] }

// Prevalence returns the number of samples with a non-zero observation
// for column j.
func (m *Matrix[K]) Prevalence(j int) int { return int(m.present[j].GetCardinality()) }

// PrevalenceIn returns the number of non-zero observations of column j
// within the keep subset, without touching the value storage.
func (m *Matrix[K]) PrevalenceIn(j int, keep *roaring.Bitmap) int {
	return int(m.present[j].AndCardinality(keep))
}
