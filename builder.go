// Package cline provides gradient screening for sparse abundance data.
//
// This file implements grouping-specific fluent builder APIs for creating
// and configuring Cline handles. Builders are immutable - each method
// returns a new builder with the updated configuration.
package cline

import (
	"github.com/strataseq/cline/binning"
	"github.com/strataseq/cline/codec"
	"github.com/strataseq/cline/groupby"
	"github.com/strataseq/cline/matrix"
	"github.com/strataseq/cline/resource"
)

// =============================================================================
// Latitude Builder (Immutable)
// =============================================================================

// Latitude creates a new builder that groups samples into uniform
// latitude bins. Bin midpoints become the reference axis for screening.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration. This ensures thread-safety and prevents
// accidental state sharing.
//
// Example:
//
//	c, err := cline.Latitude[string](mat, latitudes).
//	    Abs().
//	    Bins(12).
//	    PrevMin(20).
//	    Workers(8).
//	    Build()
func Latitude[K comparable](mat *matrix.Matrix[K], latitudes []float64) LatitudeBuilder[K] {
	return LatitudeBuilder[K]{
		mat:       mat,
		latitudes: latitudes,
		bins:      DefaultBins,
		min:       -90,
		max:       90,
		prevMin:   DefaultPrevMin,
		factor:    DefaultBinsObsMinFactor,
	}
}

// LatitudeBuilder is an immutable fluent builder for latitude-binned
// Cline handles. Each method returns a new builder with the updated
// configuration.
type LatitudeBuilder[K comparable] struct {
	mat       *matrix.Matrix[K]
	latitudes []float64
	bins      int
	min, max  float64
	rangeSet  bool
	abs       bool
	envLabels []string
	prevMin   int
	factor    float64
	workers   int
	codec     codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
}

// Bins sets the number of uniform bins over the latitude range.
// Default: 10.
func (b LatitudeBuilder[K]) Bins(n int) LatitudeBuilder[K] {
	b.bins = n
	return b
}

// Range sets the latitude range covered by the bins. Samples outside the
// range are masked out of every aggregate.
// Default: [-90, 90], or [0, 90] when Abs is set without an explicit range.
func (b LatitudeBuilder[K]) Range(min, max float64) LatitudeBuilder[K] {
	b.min = min
	b.max = max
	b.rangeSet = true
	return b
}

// Abs bins samples by absolute latitude, folding both hemispheres onto
// one poleward gradient.
func (b LatitudeBuilder[K]) Abs() LatitudeBuilder[K] {
	b.abs = true
	return b
}

// Environments splits screening into one independent pass per distinct
// label, with the multiple-testing adjustment still applied globally.
// len(labels) must equal the number of samples.
func (b LatitudeBuilder[K]) Environments(labels []string) LatitudeBuilder[K] {
	b.envLabels = labels
	return b
}

// PrevMin sets the minimum number of samples a feature must be observed
// in to survive screening. Values <= 0 disable the filter.
// Default: 10.
func (b LatitudeBuilder[K]) PrevMin(n int) LatitudeBuilder[K] {
	b.prevMin = n
	return b
}

// BinsObsMinFactor sets the divisor for the observed-groups threshold:
// features observed in fewer than floor(G/factor) of the G bins are
// excluded. Values <= 0 disable the filter.
// Default: 2.
func (b LatitudeBuilder[K]) BinsObsMinFactor(f float64) LatitudeBuilder[K] {
	b.factor = f
	return b
}

// Workers sets the number of parallel screening workers.
// Default: GOMAXPROCS.
func (b LatitudeBuilder[K]) Workers(n int) LatitudeBuilder[K] {
	b.workers = n
	return b
}

// Logger sets the structured logger for operation tracing.
func (b LatitudeBuilder[K]) Logger(l *Logger) LatitudeBuilder[K] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b LatitudeBuilder[K]) Metrics(mc MetricsCollector) LatitudeBuilder[K] {
	b.metrics = mc
	return b
}

// Codec sets the codec used when persisting artifacts.
func (b LatitudeBuilder[K]) Codec(c codec.Codec) LatitudeBuilder[K] {
	b.codec = c
	return b
}

// Resources sets a resource controller bounding concurrent screens,
// scratch memory and upload bandwidth.
func (b LatitudeBuilder[K]) Resources(rc *resource.Controller) LatitudeBuilder[K] {
	b.resources = rc
	return b
}

// Build creates the latitude-binned Cline handle.
func (b LatitudeBuilder[K]) Build() (*Cline[K], error) {
	min, max := b.min, b.max
	if b.abs && !b.rangeSet {
		min, max = 0, 90
	}

	binner, err := binning.Uniform(min, max, b.bins, func(o *binning.Options) {
		o.Abs = b.abs
	})
	if err != nil {
		return nil, err
	}

	grouping, err := binner.Grouping(b.latitudes)
	if err != nil {
		return nil, translateError(err)
	}

	return newCline(b.mat, grouping, binner.Midpoints(), b.envLabels, b.prevMin, b.factor, b.options())
}

// MustBuild creates the Cline handle, panicking on error.
func (b LatitudeBuilder[K]) MustBuild() *Cline[K] {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

func (b LatitudeBuilder[K]) options() []Option {
	var optFns []Option
	if b.codec != nil {
		optFns = append(optFns, WithCodec(b.codec))
	}
	if b.logger != nil {
		optFns = append(optFns, WithLogger(b.logger))
	}
	if b.metrics != nil {
		optFns = append(optFns, WithMetricsCollector(b.metrics))
	}
	if b.resources != nil {
		optFns = append(optFns, WithResources(b.resources))
	}
	if b.workers > 0 {
		optFns = append(optFns, WithWorkers(b.workers))
	}
	return optFns
}

// =============================================================================
// Clusters Builder (Immutable)
// =============================================================================

// Clusters creates a new builder that groups samples by community
// cluster labels, in first-seen order. Without a Reference axis the
// handle supports aggregation and composition scoring but not screening.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	c, err := cline.Clusters[string](mat, clusterIDs).
//	    Reference(clusterDepths).
//	    PrevMin(5).
//	    Build()
func Clusters[K comparable](mat *matrix.Matrix[K], clusters []string) ClustersBuilder[K] {
	return ClustersBuilder[K]{
		mat:      mat,
		clusters: clusters,
		prevMin:  DefaultPrevMin,
		factor:   DefaultBinsObsMinFactor,
	}
}

// ClustersBuilder is an immutable fluent builder for cluster-grouped
// Cline handles. Each method returns a new builder with the updated
// configuration.
type ClustersBuilder[K comparable] struct {
	mat       *matrix.Matrix[K]
	clusters  []string
	reference []float64
	envLabels []string
	prevMin   int
	factor    float64
	workers   int
	codec     codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller
}

// Reference sets the per-cluster reference axis screened against
// (e.g. mean depth or temperature per cluster). len(values) must equal
// the number of distinct clusters.
func (b ClustersBuilder[K]) Reference(values []float64) ClustersBuilder[K] {
	b.reference = values
	return b
}

// Environments splits screening into one independent pass per distinct
// label, with the multiple-testing adjustment still applied globally.
// len(labels) must equal the number of samples.
func (b ClustersBuilder[K]) Environments(labels []string) ClustersBuilder[K] {
	b.envLabels = labels
	return b
}

// PrevMin sets the minimum number of samples a feature must be observed
// in to survive screening. Values <= 0 disable the filter.
// Default: 10.
func (b ClustersBuilder[K]) PrevMin(n int) ClustersBuilder[K] {
	b.prevMin = n
	return b
}

// BinsObsMinFactor sets the divisor for the observed-groups threshold:
// features observed in fewer than floor(G/factor) of the G clusters are
// excluded. Values <= 0 disable the filter.
// Default: 2.
func (b ClustersBuilder[K]) BinsObsMinFactor(f float64) ClustersBuilder[K] {
	b.factor = f
	return b
}

// Workers sets the number of parallel screening workers.
// Default: GOMAXPROCS.
func (b ClustersBuilder[K]) Workers(n int) ClustersBuilder[K] {
	b.workers = n
	return b
}

// Logger sets the structured logger for operation tracing.
func (b ClustersBuilder[K]) Logger(l *Logger) ClustersBuilder[K] {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b ClustersBuilder[K]) Metrics(mc MetricsCollector) ClustersBuilder[K] {
	b.metrics = mc
	return b
}

// Codec sets the codec used when persisting artifacts.
func (b ClustersBuilder[K]) Codec(c codec.Codec) ClustersBuilder[K] {
	b.codec = c
	return b
}

// Resources sets a resource controller bounding concurrent screens,
// scratch memory and upload bandwidth.
func (b ClustersBuilder[K]) Resources(rc *resource.Controller) ClustersBuilder[K] {
	b.resources = rc
	return b
}

// Build creates the cluster-grouped Cline handle.
func (b ClustersBuilder[K]) Build() (*Cline[K], error) {
	grouping, _ := groupby.FromLabels(b.clusters)

	var optFns []Option
	if b.codec != nil {
		optFns = append(optFns, WithCodec(b.codec))
	}
	if b.logger != nil {
		optFns = append(optFns, WithLogger(b.logger))
	}
	if b.metrics != nil {
		optFns = append(optFns, WithMetricsCollector(b.metrics))
	}
	if b.resources != nil {
		optFns = append(optFns, WithResources(b.resources))
	}
	if b.workers > 0 {
		optFns = append(optFns, WithWorkers(b.workers))
	}

	return newCline(b.mat, grouping, b.reference, b.envLabels, b.prevMin, b.factor, optFns)
}

// MustBuild creates the Cline handle, panicking on error.
func (b ClustersBuilder[K]) MustBuild() *Cline[K] {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}
