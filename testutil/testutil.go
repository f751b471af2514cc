package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Latitudes returns n uniform pseudo-random latitudes in [-90, 90].
func (r *RNG) Latitudes(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	lats := make([]float64, n)
	for i := range lats {
		lats[i] = r.rand.Float64()*180 - 90
	}
	return lats
}

// SampleIDs returns n synthetic sample identifiers.
func SampleIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("sample-%04d", i)
	}
	return ids
}

// FeatureIDs returns n synthetic feature identifiers.
func FeatureIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("taxon-%04d", i)
	}
	return ids
}

// SparseAbundance returns a dense sample-by-feature table in which each
// cell is non-zero with probability density. Non-zero values are
// log-normally distributed, matching the heavy right tail of real
// abundance counts.
func (r *RNG) SparseAbundance(features, samples int, density float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([][]float64, samples)
	for i := range data {
		row := make([]float64, features)
		for j := range row {
			if r.rand.Float64() < density {
				row[j] = math.Exp(r.rand.NormFloat64())
			}
		}
		data[i] = row
	}
	return data
}

// GradientFeature returns one feature column whose abundance increases
// linearly with the absolute value of the gradient, plus Gaussian noise.
// dropout is the per-sample probability of a zero observation.
func (r *RNG) GradientFeature(gradient []float64, slope, dropout float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	col := make([]float64, len(gradient))
	for i, g := range gradient {
		if r.rand.Float64() < dropout {
			continue
		}
		v := slope*math.Abs(g) + r.rand.NormFloat64()
		if v < 0.01 {
			v = 0.01
		}
		col[i] = v
	}
	return col
}

// ClusterLabels returns n pseudo-random cluster labels drawn from k
// distinct clusters.
func (r *RNG) ClusterLabels(n, k int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("cluster-%d", r.rand.Intn(k))
	}
	return labels
}
