// Package stats provides the statistical primitives consumed by the
// screening pipeline: Pearson correlation, Fisher-z p-values,
// Benjamini-Hochberg adjustment, and Shannon entropy.
//
// These are thin, allocation-light wrappers; the screening pipeline
// treats them as black boxes with the documented contracts.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the linear correlation coefficient between x and y,
// skipping any pair in which either value is NaN. It returns NaN when
// fewer than two complete pairs remain or when either side has zero
// variance.
//
// x and y must have equal length; unequal lengths are a programming
// error and panic, matching slice indexing semantics.
func Pearson(x, y []float64) float64 {
	r, _ := PearsonN(x, y)
	return r
}

// PearsonN is Pearson plus the number of complete pairs that entered the
// coefficient, which downstream p-value computations need.
func PearsonN(x, y []float64) (float64, int) {
	if len(x) != len(y) {
		panic("stats: mismatched lengths")
	}

	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}

	if len(xs) < 2 {
		return math.NaN(), len(xs)
	}
	return stat.Correlation(xs, ys, nil), len(xs)
}

// FisherZPValue returns the two-tailed p-value for a correlation r
// observed over n pairs, using the Fisher z transform with standard
// error 1/sqrt(n-3). It returns NaN when r is NaN or n <= 3, and clamps
// vanishing p-values at 1e-10 to keep downstream log-scale plots finite.
func FisherZPValue(r float64, n int) float64 {
	if math.IsNaN(r) || n <= 3 {
		return math.NaN()
	}

	// atanh diverges at |r| = 1; the clamp below caps those at the floor.
	z := math.Atanh(math.Min(math.Abs(r), 1-1e-15))
	se := 1 / math.Sqrt(float64(n-3))

	p := 2 * distuv.UnitNormal.Survival(z/se)
	if p < 1e-10 {
		p = 1e-10
	}
	return p
}

// Entropy returns the Shannon entropy (natural log) of the distribution
// proportional to the non-negative weights. Zero weights contribute
// nothing. It returns 0 for an empty or all-zero weight vector.
func Entropy(weights []float64) float64 {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return 0
	}

	var h float64
	for _, w := range weights {
		if w <= 0 {
			continue
		}
		p := w / total
		h -= p * math.Log(p)
	}
	return h
}
