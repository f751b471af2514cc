package matrix

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Snapshot is the serializable form of a Matrix. Presence bitmaps and
// the feature index are derived state and are rebuilt on load.
type Snapshot[K comparable] struct {
	Features []K       `json:"features"`
	Samples  []string  `json:"samples"`
	ColPtr   []int     `json:"colptr"`
	Rows     []int32   `json:"rows"`
	Vals     []float64 `json:"vals"`
}

// Snapshot returns the serializable form of the matrix. The snapshot
// aliases the matrix storage; it is meant to be encoded immediately.
func (m *Matrix[K]) Snapshot() Snapshot[K] {
	return Snapshot[K]{
		Features: m.features,
		Samples:  m.samples,
		ColPtr:   m.colptr,
		Rows:     m.rows,
		Vals:     m.vals,
	}
}

// FromSnapshot rebuilds a Matrix from its serialized form, validating
// the column layout and re-deriving the feature index and presence
// bitmaps.
func FromSnapshot[K comparable](s Snapshot[K]) (*Matrix[K], error) {
	if len(s.ColPtr) != len(s.Features)+1 {
		return nil, fmt.Errorf("matrix: snapshot has %d column offsets for %d features", len(s.ColPtr), len(s.Features))
	}
	if len(s.Rows) != len(s.Vals) {
		return nil, fmt.Errorf("matrix: snapshot has %d row indexes for %d values", len(s.Rows), len(s.Vals))
	}
	if len(s.ColPtr) > 0 && s.ColPtr[len(s.ColPtr)-1] != len(s.Rows) {
		return nil, fmt.Errorf("matrix: snapshot column offsets end at %d, want %d", s.ColPtr[len(s.ColPtr)-1], len(s.Rows))
	}

	m := &Matrix[K]{
		features: s.Features,
		findex:   make(map[K]int, len(s.Features)),
		samples:  s.Samples,
		colptr:   s.ColPtr,
		rows:     s.Rows,
		vals:     s.Vals,
		present:  make([]*roaring.Bitmap, len(s.Features)),
	}

	for j, f := range s.Features {
		if _, dup := m.findex[f]; dup {
			return nil, fmt.Errorf("matrix: snapshot has duplicate feature %v", f)
		}
		m.findex[f] = j

		lo, hi := s.ColPtr[j], s.ColPtr[j+1]
		if lo > hi || lo < 0 || hi > len(s.Rows) {
			return nil, fmt.Errorf("matrix: snapshot column %d has invalid offsets [%d, %d)", j, lo, hi)
		}
		bm := roaring.New()
		for _, r := range s.Rows[lo:hi] {
			if int(r) < 0 || int(r) >= len(s.Samples) {
				return nil, fmt.Errorf("matrix: snapshot row index %d out of range [0, %d)", r, len(s.Samples))
			}
			bm.Add(uint32(r))
		}
		m.present[j] = bm
	}

	return m, nil
}
