// Package testutil provides testing utilities for cline.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating deterministic sparse abundance
// data, sample gradients, and cluster labels.
//
// # Random Data Generation
//
//	rng := testutil.NewRNG(seed)
//	lats := rng.Latitudes(200)                      // uniform [-90, 90]
//	data := rng.SparseAbundance(50, 200, 0.2)       // 20% non-zero
//	grad := rng.GradientFeature(lats, 1.0, 0.05)    // tracks the gradient
//
// # Cluster Labels
//
//	labels := rng.ClusterLabels(200, 5)
package testutil
