package stats

import (
	"math"
	"sort"
)

// BenjaminiHochberg returns Benjamini-Hochberg adjusted p-values for ps,
// controlling the false discovery rate across the whole set.
//
// The adjusted values are monotone non-decreasing when ordered by
// ascending raw p-value, and each adjusted value is >= its raw value and
// <= 1. NaN entries are passed through as NaN and do not count towards
// the number of tests. The input slice is not modified.
func BenjaminiHochberg(ps []float64) []float64 {
	adjusted := make([]float64, len(ps))

	order := make([]int, 0, len(ps))
	for i, p := range ps {
		if math.IsNaN(p) {
			adjusted[i] = math.NaN()
			continue
		}
		order = append(order, i)
	}

	m := len(order)
	if m == 0 {
		return adjusted
	}

	sort.Slice(order, func(a, b int) bool {
		return ps[order[a]] < ps[order[b]]
	})

	// Walk from the largest p downwards, enforcing monotonicity by
	// carrying the running minimum.
	running := math.Inf(1)
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		adj := ps[idx] * float64(m) / float64(rank)
		if adj < running {
			running = adj
		}
		if running > 1 {
			adjusted[idx] = 1
		} else {
			adjusted[idx] = running
		}
	}

	return adjusted
}
