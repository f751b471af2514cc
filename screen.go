// Package cline provides gradient screening for sparse abundance data.
//
// This file implements the fluent screening API over the worker engine.
package cline

import (
	"context"
	"iter"
	"math"
	"time"

	"github.com/strataseq/cline/engine"
	"github.com/strataseq/cline/groupby"
	"github.com/strataseq/cline/stats"
)

// Screen creates a new fluent screening builder over every feature of
// the matrix.
//
// Example:
//
//	report, err := c.Screen().
//	    LogMeans().
//	    Adjust().
//	    Execute(ctx)
//
//	// Or with streaming:
//	for result, err := range c.Screen().Stream(ctx) {
//	    if err != nil { break }
//	    process(result)
//	}
func (c *Cline[K]) Screen() *ScreenBuilder[K] {
	return &ScreenBuilder[K]{c: c}
}

// ScreenBuilder is a fluent builder for configuring a screening run.
type ScreenBuilder[K comparable] struct {
	c        *Cline[K]
	logMeans bool
	adjust   bool
}

// LogMeans correlates log10 of the per-group means instead of the raw
// means. Zero means are protected by a pseudo-count of one tenth of the
// smallest positive mean; when every observed mean is positive no shift
// is applied.
func (sb *ScreenBuilder[K]) LogMeans() *ScreenBuilder[K] {
	sb.logMeans = true
	return sb
}

// Adjust applies Benjamini-Hochberg adjustment to the p-values of all
// surviving features, across every environment of the run.
func (sb *ScreenBuilder[K]) Adjust() *ScreenBuilder[K] {
	sb.adjust = true
	return sb
}

// slot holds the outcome of one (environment, feature) task. Exactly one
// of kept/excluded is set.
type slot[K comparable] struct {
	kept     bool
	result   Result[K]
	excluded Exclusion[K]
}

// Execute runs the screen and returns the joined report: surviving
// features in the main table, filtered ones in the excluded table, both
// in environment-major feature order.
func (sb *ScreenBuilder[K]) Execute(ctx context.Context) (*Report[K], error) {
	start := time.Now()
	c := sb.c

	report, err := sb.execute(ctx)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordScreen(0, 0, duration, err)
		c.logger.LogScreen(ctx, c.mat.NumFeatures(), 0, 0, err)
		return nil, err
	}

	c.metrics.RecordScreen(len(report.Results)+len(report.Excluded), len(report.Excluded), duration, nil)
	c.logger.LogScreen(ctx, c.mat.NumFeatures(), len(report.Results), len(report.Excluded), nil)
	return report, nil
}

func (sb *ScreenBuilder[K]) execute(ctx context.Context) (*Report[K], error) {
	c := sb.c
	if c.refs == nil {
		return nil, ErrNoReference
	}

	if err := c.resources.AcquireRun(ctx); err != nil {
		return nil, err
	}
	defer c.resources.ReleaseRun()

	nf := c.mat.NumFeatures()
	ne := len(c.envs)
	slots := make([]slot[K], ne*nf)

	runner := engine.NewRunner(c.workers)
	defer runner.Close()

	err := runner.Run(ctx, ne*nf, func(ctx context.Context, i int) error {
		env := &c.envs[i/nf]
		acc := env.pool.Acquire()
		defer env.pool.Release(acc)
		return c.screenFeature(env, i%nf, acc, sb.logMeans, &slots[i])
	})
	if err != nil {
		return nil, err
	}

	report := &Report[K]{}
	for i := range slots {
		if slots[i].kept {
			report.Results = append(report.Results, slots[i].result)
		} else {
			report.Excluded = append(report.Excluded, slots[i].excluded)
			c.logger.LogExclude(ctx, slots[i].excluded.Feature, slots[i].excluded.Reason)
		}
	}

	// Adjustment happens after the join barrier, across all environments
	// of the run.
	if sb.adjust {
		ps := make([]float64, len(report.Results))
		for i := range report.Results {
			ps[i] = report.Results[i].PValue
		}
		adjusted := stats.BenjaminiHochberg(ps)
		for i := range report.Results {
			report.Results[i].AdjustedP = adjusted[i]
		}
		c.logger.LogAdjust(ctx, len(ps))
	}

	return report, nil
}

// Stream returns an iterator over screening results for memory-efficient
// processing, in environment-major feature order. Excluded features are
// skipped. Adjustment requires the full result set and is not applied;
// use Execute for adjusted p-values.
//
// The iterator supports early termination by breaking from the loop.
func (sb *ScreenBuilder[K]) Stream(ctx context.Context) iter.Seq2[Result[K], error] {
	return func(yield func(Result[K], error) bool) {
		c := sb.c
		if c.refs == nil {
			yield(Result[K]{}, ErrNoReference)
			return
		}

		if err := c.resources.AcquireRun(ctx); err != nil {
			yield(Result[K]{}, err)
			return
		}
		defer c.resources.ReleaseRun()

		nf := c.mat.NumFeatures()
		for e := range c.envs {
			env := &c.envs[e]
			acc := env.pool.Acquire()

			for j := 0; j < nf; j++ {
				if err := ctx.Err(); err != nil {
					env.pool.Release(acc)
					yield(Result[K]{}, err)
					return
				}

				var s slot[K]
				if err := c.screenFeature(env, j, acc, sb.logMeans, &s); err != nil {
					env.pool.Release(acc)
					yield(Result[K]{}, err)
					return
				}
				if !s.kept {
					c.logger.LogExclude(ctx, s.excluded.Feature, s.excluded.Reason)
					continue
				}
				if !yield(s.result, nil) {
					env.pool.Release(acc)
					return
				}
			}

			env.pool.Release(acc)
		}
	}
}

// screenFeature screens one feature within one environment, writing the
// outcome into out. acc must belong to env's grouping.
func (c *Cline[K]) screenFeature(env *environment, j int, acc *groupby.Accumulator, logMeans bool, out *slot[K]) error {
	feature := c.mat.Features()[j]

	// A feature absent from the whole subset never touches the
	// aggregation kernel. The presence bitmap still counts samples the
	// grouping masks out, so this is only the cheap upper bound; the
	// exact prevalence comes from the accumulator after the pass.
	var present int
	if env.keep != nil {
		present = c.mat.PrevalenceIn(j, env.keep)
	} else {
		present = c.mat.Prevalence(j)
	}
	if present == 0 {
		out.excluded = Exclusion[K]{
			Feature:     feature,
			Environment: env.name,
			Reason:      ExcludeAllZero,
		}
		return nil
	}

	if err := acc.Accumulate(c.mat.ColumnAt(j), groupby.TransformLinear); err != nil {
		return translateError(err)
	}

	// Prevalence is the sum of per-group observed counts: observations
	// on masked samples do not participate.
	prevalence := acc.TotalObserved()
	if prevalence == 0 {
		out.excluded = Exclusion[K]{
			Feature:     feature,
			Environment: env.name,
			Reason:      ExcludeAllZero,
		}
		return nil
	}

	groupsObserved := acc.ObservedGroups()

	if prevalence < c.prevMin {
		out.excluded = Exclusion[K]{
			Feature:        feature,
			Environment:    env.name,
			Reason:         ExcludeLowPrevalence,
			GroupsObserved: groupsObserved,
			Prevalence:     prevalence,
		}
		return nil
	}
	if groupsObserved < c.minGroups() {
		out.excluded = Exclusion[K]{
			Feature:        feature,
			Environment:    env.name,
			Reason:         ExcludeFewGroups,
			GroupsObserved: groupsObserved,
			Prevalence:     prevalence,
		}
		return nil
	}

	means := append([]float64(nil), acc.Means()...)
	if logMeans {
		logTransformMeans(means)
	}

	r, _ := stats.PearsonN(means, c.refs)
	p := stats.FisherZPValue(r, groupsObserved)

	out.kept = true
	out.result = Result[K]{
		Feature:        feature,
		Environment:    env.name,
		Correlation:    r,
		PValue:         p,
		AdjustedP:      math.NaN(),
		GroupsObserved: groupsObserved,
		Prevalence:     prevalence,
	}
	return nil
}

// logTransformMeans replaces each mean with log10(mean + p) in place.
// The pseudo-count p is one tenth of the smallest positive mean, applied
// only when a zero mean is present. NaN means (empty groups) pass
// through untouched.
func logTransformMeans(means []float64) {
	minPositive := math.Inf(1)
	hasZero := false
	for _, m := range means {
		if math.IsNaN(m) {
			continue
		}
		if m == 0 {
			hasZero = true
		} else if m < minPositive {
			minPositive = m
		}
	}

	p := 0.0
	if hasZero && !math.IsInf(minPositive, 1) {
		p = minPositive / 10
	}

	for i, m := range means {
		if math.IsNaN(m) {
			continue
		}
		means[i] = math.Log10(m + p)
	}
}
