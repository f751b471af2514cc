package groupby

import "iter"

// Vector is a sample-indexed sequence of observations.
//
// The two implementations, Dense and Sparse, are explicit representations
// chosen by the caller; the kernel never inspects runtime types beyond
// this interface. For linear aggregation both representations yield
// identical results for the same logical content.
type Vector interface {
	// Len returns the logical number of samples.
	Len() int

	// NonZero iterates the present (non-zero) entries as (sample, value)
	// pairs in ascending sample order.
	NonZero() iter.Seq2[int, float64]
}

// Dense is a fully materialized observation vector. Exact zeros are
// treated as absent entries.
type Dense []float64

// Len returns the number of samples.
func (d Dense) Len() int { return len(d) }

// NonZero iterates entries with a non-zero value.
func (d Dense) NonZero() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for i, v := range d {
			if v == 0 {
				continue
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Sparse is an observation vector that materializes only its non-zero
// entries. Index holds sample positions in ascending order, Value the
// corresponding observations, and N the logical vector length.
//
// Index entries must be valid positions in [0, N); the accumulator
// fails fast on out-of-range indexes.
type Sparse struct {
	Index []int32
	Value []float64
	N     int
}

// Len returns the logical number of samples.
func (s Sparse) Len() int { return s.N }

// NonZero iterates the materialized entries, skipping any explicit zeros
// so that a sparse vector and its dense expansion aggregate identically.
func (s Sparse) NonZero() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for k, idx := range s.Index {
			v := s.Value[k]
			if v == 0 {
				continue
			}
			if !yield(int(idx), v) {
				return
			}
		}
	}
}
