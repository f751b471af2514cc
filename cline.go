// Package cline screens sparse feature-by-sample abundance matrices
// against environmental gradients.
//
// The pipeline groups samples (latitude bins, community clusters),
// aggregates every feature column into per-group means in one pass, and
// correlates the means against a reference axis, with production-ready
// features including:
//
//   - Columnar sparse matrix with Roaring-bitmap presence tracking
//   - Type-safe fluent builders: Latitude[K](), Clusters[K]()
//   - Reusable zero-allocation aggregation kernel with pooled buffers
//   - Linear and log10 transforms with implicit-zero handling
//   - Fisher-z p-values and Benjamini-Hochberg adjustment
//   - Reliability filtering into a separate excluded table
//   - Per-environment screening with a global adjustment barrier
//   - Streaming result API for memory-efficient iteration
//   - Checksummed, compressed artifact persistence over pluggable blob
//     stores (local FS, memory, S3, MinIO)
//
// # Quick Start (Fluent API)
//
// Screen a matrix along absolute latitude:
//
//	ctx := context.Background()
//	c, err := cline.Latitude[string](mat, latitudes).
//	    Abs().                       // Fold hemispheres onto one gradient
//	    Bins(12).                    // Uniform bins over the range
//	    PrevMin(20).                 // Reliability thresholds
//	    Workers(8).
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//
//	report, err := c.Screen().
//	    LogMeans().                  // Correlate log10 of the bin means
//	    Adjust().                    // Benjamini-Hochberg across the run
//	    Execute(ctx)
//
// Streaming for memory efficiency:
//
//	for result, err := range c.Screen().Stream(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if result.PValue < 0.01 {
//	        process(result)
//	    }
//	}
//
// Single-feature aggregation with an explicit transform:
//
//	summary, err := c.Aggregate(ctx, "taxon-42", func(o *cline.AggregateOptions) {
//	    o.Transform = groupby.TransformLog10
//	})
//
// Cluster composition scoring:
//
//	c, _ := cline.Clusters[string](mat, clusterIDs).Build()
//	entropy, _ := c.GroupEntropy(oceanRegions)
package cline

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/strataseq/cline/blobstore"
	"github.com/strataseq/cline/codec"
	"github.com/strataseq/cline/groupby"
	"github.com/strataseq/cline/matrix"
	"github.com/strataseq/cline/persist"
	"github.com/strataseq/cline/resource"
	"github.com/strataseq/cline/stats"
)

// Default thresholds used by the builders.
const (
	// DefaultBins is the default number of uniform gradient bins.
	DefaultBins = 10

	// DefaultPrevMin is the default minimum number of samples a feature
	// must be observed in to survive screening.
	DefaultPrevMin = 10

	// DefaultBinsObsMinFactor is the default divisor for the minimum
	// observed-groups threshold: a feature must appear in at least
	// floor(G/factor) of the G groups.
	DefaultBinsObsMinFactor = 2.0
)

// Cline is a screening handle over one matrix and one grouping.
// It is safe for concurrent use once built.
type Cline[K comparable] struct {
	mat      *matrix.Matrix[K]
	grouping *groupby.Grouping
	refs     []float64
	pool     *groupby.Pool
	envs     []environment

	prevMin          int
	binsObsMinFactor float64
	workers          int

	codec     codec.Codec
	metrics   MetricsCollector
	logger    *Logger
	resources *resource.Controller
}

// environment is one sample subset screened independently. keep is nil
// for the implicit global environment.
type environment struct {
	name     string
	keep     *roaring.Bitmap
	grouping *groupby.Grouping
	pool     *groupby.Pool
}

// newCline is the internal constructor shared by the builders.
func newCline[K comparable](mat *matrix.Matrix[K], grouping *groupby.Grouping, refs []float64, envLabels []string, prevMin int, factor float64, optFns []Option) (*Cline[K], error) {
	if mat == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrInvalidInput)
	}
	if grouping.NumSamples() != mat.NumSamples() {
		return nil, fmt.Errorf("%w: grouping covers %d samples, matrix has %d", ErrInvalidInput, grouping.NumSamples(), mat.NumSamples())
	}
	if refs != nil && len(refs) != grouping.NumGroups() {
		return nil, fmt.Errorf("%w: got %d reference values for %d groups", ErrInvalidInput, len(refs), grouping.NumGroups())
	}

	opts := applyOptions(optFns)
	c := opts.codec
	if c == nil {
		c = codec.Default
	}

	cl := &Cline[K]{
		mat:              mat,
		grouping:         grouping,
		refs:             refs,
		pool:             groupby.NewPool(grouping),
		prevMin:          prevMin,
		binsObsMinFactor: factor,
		workers:          opts.workers,
		codec:            c,
		metrics:          opts.metricsCollector,
		logger:           opts.logger,
		resources:        opts.resources,
	}

	if envLabels == nil {
		cl.envs = []environment{{
			name:     "",
			grouping: grouping,
			pool:     cl.pool,
		}}
		return cl, nil
	}

	if len(envLabels) != mat.NumSamples() {
		return nil, fmt.Errorf("%w: got %d environment labels for %d samples", ErrInvalidInput, len(envLabels), mat.NumSamples())
	}

	// One subset per label, first-seen order.
	index := make(map[string]int)
	var subsets []*roaring.Bitmap
	var names []string
	for i, l := range envLabels {
		e, ok := index[l]
		if !ok {
			e = len(subsets)
			index[l] = e
			subsets = append(subsets, roaring.New())
			names = append(names, l)
		}
		subsets[e].Add(uint32(i))
	}

	cl.envs = make([]environment, len(subsets))
	for e, keep := range subsets {
		g := grouping.Restrict(keep)
		cl.envs[e] = environment{
			name:     names[e],
			keep:     keep,
			grouping: g,
			pool:     groupby.NewPool(g),
		}
	}
	return cl, nil
}

// minGroups returns the observed-groups reliability threshold.
func (c *Cline[K]) minGroups() int {
	if c.binsObsMinFactor <= 0 {
		return 0
	}
	return int(float64(c.grouping.NumGroups()) / c.binsObsMinFactor)
}

// Matrix returns the screened matrix.
func (c *Cline[K]) Matrix() *matrix.Matrix[K] { return c.mat }

// Grouping returns the sample grouping.
func (c *Cline[K]) Grouping() *groupby.Grouping { return c.grouping }

// Reference returns the per-group reference axis, or nil when none is
// configured. The returned slice is shared and must be treated as
// read-only.
func (c *Cline[K]) Reference() []float64 { return c.refs }

// Environments returns the environment names in screening order, or nil
// for a global screen.
func (c *Cline[K]) Environments() []string {
	if len(c.envs) == 1 && c.envs[0].name == "" {
		return nil
	}
	names := make([]string, len(c.envs))
	for i := range c.envs {
		names[i] = c.envs[i].name
	}
	return names
}

// GroupStat is the per-group aggregate of one feature.
type GroupStat struct {
	Label string  `json:"label"`
	Size  int     `json:"size"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
}

// Summary is the full per-group aggregation of one feature.
type Summary[K comparable] struct {
	Feature   K
	Transform groupby.Transform
	Groups    []GroupStat
}

// AggregateOptions contains options for Aggregate.
type AggregateOptions struct {
	// Transform selects how observations enter the aggregate.
	// Default: groupby.TransformLinear.
	Transform groupby.Transform
}

// Aggregate computes the per-group summary of a single feature over the
// full grouping.
func (c *Cline[K]) Aggregate(ctx context.Context, feature K, optFns ...func(o *AggregateOptions)) (*Summary[K], error) {
	start := time.Now()
	opts := AggregateOptions{
		Transform: groupby.TransformLinear,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	summary, err := c.aggregate(ctx, feature, opts.Transform)
	duration := time.Since(start)
	c.metrics.RecordAggregate(duration, err)
	if err != nil {
		c.logger.LogAggregate(ctx, feature, 0, err)
		return nil, err
	}

	observed := 0
	for _, g := range summary.Groups {
		if g.Count > 0 {
			observed++
		}
	}
	c.logger.LogAggregate(ctx, feature, observed, nil)
	return summary, nil
}

func (c *Cline[K]) aggregate(ctx context.Context, feature K, transform groupby.Transform) (*Summary[K], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j, ok := c.mat.FeatureIndex(feature)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFeature, feature)
	}

	// Aggregation always runs over the full grouping, even when
	// screening is split per environment.
	acc := c.pool.Acquire()
	defer c.pool.Release(acc)

	if err := acc.Accumulate(c.mat.ColumnAt(j), transform); err != nil {
		return nil, translateError(err)
	}

	sums, counts, means := acc.Sums(), acc.Counts(), acc.Means()
	groups := make([]GroupStat, c.grouping.NumGroups())
	for g := range groups {
		groups[g] = GroupStat{
			Label: c.grouping.Label(g),
			Size:  c.grouping.Size(g),
			Count: counts[g],
			Sum:   sums[g],
			Mean:  means[g],
		}
	}

	return &Summary[K]{Feature: feature, Transform: transform, Groups: groups}, nil
}

// GroupEntropy returns the Shannon entropy (natural log) of the given
// per-sample categorical labels within each group. A homogeneous group
// scores 0; higher values mean more mixed composition.
//
// len(labels) must equal the number of samples; masked samples are
// ignored.
func (c *Cline[K]) GroupEntropy(labels []string) ([]float64, error) {
	if len(labels) != c.mat.NumSamples() {
		return nil, fmt.Errorf("%w: got %d labels for %d samples", ErrInvalidInput, len(labels), c.mat.NumSamples())
	}

	index := make(map[string]int)
	for _, l := range labels {
		if _, ok := index[l]; !ok {
			index[l] = len(index)
		}
	}

	numGroups := c.grouping.NumGroups()
	counts := make([][]float64, numGroups)
	for g := range counts {
		counts[g] = make([]float64, len(index))
	}
	for i, l := range labels {
		g := c.grouping.Assignment(i)
		if g < 0 {
			continue
		}
		counts[g][index[l]]++
	}

	entropy := make([]float64, numGroups)
	for g := range counts {
		entropy[g] = stats.Entropy(counts[g])
	}
	return entropy, nil
}

// SaveReport persists a screening report to the blob store as an LZ4
// compressed container using the configured codec.
func (c *Cline[K]) SaveReport(ctx context.Context, store blobstore.BlobStore, name string, report *Report[K]) error {
	start := time.Now()
	err := persist.Save(ctx, store, name, report, func(o *persist.Options) {
		o.Codec = c.codec
		o.Compression = persist.CompressionLZ4
		o.Resources = c.resources
	})
	c.metrics.RecordSave(time.Since(start), err)
	c.logger.LogSave(ctx, name, err)
	return err
}

// LoadReport loads a previously saved screening report.
func LoadReport[K comparable](ctx context.Context, store blobstore.BlobStore, name string) (*Report[K], error) {
	var report Report[K]
	if err := persist.Load(ctx, store, name, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// SaveMatrix persists the matrix snapshot to the blob store as a zstd
// compressed container.
func (c *Cline[K]) SaveMatrix(ctx context.Context, store blobstore.BlobStore, name string) error {
	start := time.Now()
	snap := c.mat.Snapshot()
	err := persist.Save(ctx, store, name, snap, func(o *persist.Options) {
		o.Codec = c.codec
		o.Compression = persist.CompressionZstd
		o.Resources = c.resources
	})
	c.metrics.RecordSave(time.Since(start), err)
	c.logger.LogSave(ctx, name, err)
	return err
}

// LoadMatrix loads a previously saved matrix snapshot.
func LoadMatrix[K comparable](ctx context.Context, store blobstore.BlobStore, name string) (*matrix.Matrix[K], error) {
	var snap matrix.Snapshot[K]
	if err := persist.Load(ctx, store, name, &snap); err != nil {
		return nil, err
	}
	return matrix.FromSnapshot(snap)
}
