package cline

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataseq/cline/matrix"
	"github.com/strataseq/cline/testutil"
)

// gradientFixture builds a matrix of 200 samples in 10 latitude bins:
// a strong gradient feature, a flat feature, and a rare feature present
// in a single sample.
func gradientFixture(t *testing.T) (*Cline[string], int) {
	t.Helper()

	rng := testutil.NewRNG(4711)
	const samples = 200

	// Two samples per degree keeps every bin populated.
	lats := make([]float64, samples)
	for i := range lats {
		lats[i] = float64(i%90) + 0.5
	}

	gradient := rng.GradientFeature(lats, 1.0, 0.05)
	b := matrix.NewBuilder[string](testutil.SampleIDs(samples))
	for i, v := range gradient {
		if v != 0 {
			require.NoError(t, b.Add("gradient", matrix.Entry{Sample: i, Value: v}))
		}
	}
	for i := 0; i < samples; i++ {
		require.NoError(t, b.Add("flat", matrix.Entry{Sample: i, Value: 1}))
	}
	require.NoError(t, b.Add("rare", matrix.Entry{Sample: 7, Value: 3}))

	c, err := Latitude[string](b.Build(), lats).
		Range(0, 90).
		Bins(10).
		PrevMin(10).
		BinsObsMinFactor(2).
		Workers(4).
		Build()
	require.NoError(t, err)
	return c, samples
}

func findResult(t *testing.T, results []Result[string], feature string) Result[string] {
	t.Helper()
	for _, r := range results {
		if r.Feature == feature {
			return r
		}
	}
	t.Fatalf("feature %s not in results", feature)
	return Result[string]{}
}

func findExclusion(t *testing.T, excluded []Exclusion[string], feature string) Exclusion[string] {
	t.Helper()
	for _, e := range excluded {
		if e.Feature == feature {
			return e
		}
	}
	t.Fatalf("feature %s not in excluded table", feature)
	return Exclusion[string]{}
}

func TestScreenGradientDetected(t *testing.T) {
	c, _ := gradientFixture(t)

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	grad := findResult(t, report.Results, "gradient")
	assert.Greater(t, grad.Correlation, 0.9)
	assert.Less(t, grad.PValue, 0.01)
	assert.Equal(t, 10, grad.GroupsObserved)
	assert.Greater(t, grad.Prevalence, 150)
}

func TestScreenRareFeatureExcluded(t *testing.T) {
	c, _ := gradientFixture(t)

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	// Present in 1 of 200 samples and 1 of 10 bins: fails both filters,
	// prevalence first.
	rare := findExclusion(t, report.Excluded, "rare")
	assert.Equal(t, ExcludeLowPrevalence, rare.Reason)
	assert.Equal(t, 1, rare.Prevalence)
	assert.Equal(t, 1, rare.GroupsObserved)
}

func TestScreenFewGroupsExcluded(t *testing.T) {
	// One feature observed heavily but only inside a single bin: passes
	// prevalence, fails the floor(10/2)=5 observed-groups minimum.
	lats := make([]float64, 40)
	for i := range lats {
		lats[i] = float64(i%90) + 0.5
	}
	b := matrix.NewBuilder[string](testutil.SampleIDs(40))
	for i := 0; i < 40; i++ {
		require.NoError(t, b.Add("wide", matrix.Entry{Sample: i, Value: 1}))
		if lats[i] < 9 {
			require.NoError(t, b.Add("narrow", matrix.Entry{Sample: i, Value: 2}))
		}
	}

	c, err := Latitude[string](b.Build(), lats).
		Range(0, 90).
		Bins(10).
		PrevMin(3).
		BinsObsMinFactor(2).
		Build()
	require.NoError(t, err)

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	narrow := findExclusion(t, report.Excluded, "narrow")
	assert.Equal(t, ExcludeFewGroups, narrow.Reason)
	assert.Equal(t, 1, narrow.GroupsObserved)
	assert.GreaterOrEqual(t, narrow.Prevalence, 3)
}

func TestScreenAllZeroExcluded(t *testing.T) {
	lats := []float64{5, 15, 25, 35}
	b := matrix.NewBuilder[string](testutil.SampleIDs(4))
	require.NoError(t, b.Add("present", matrix.Entry{Sample: 0, Value: 1}, matrix.Entry{Sample: 2, Value: 1}))
	require.NoError(t, b.Add("absent"))

	c, err := Latitude[string](b.Build(), lats).
		Range(0, 40).
		Bins(4).
		PrevMin(0).
		BinsObsMinFactor(0).
		Build()
	require.NoError(t, err)

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	absent := findExclusion(t, report.Excluded, "absent")
	assert.Equal(t, ExcludeAllZero, absent.Reason)
	assert.Equal(t, 0, absent.Prevalence)
	assert.Equal(t, 0, absent.GroupsObserved)
}

func TestScreenPrevalenceIgnoresOutOfRangeSamples(t *testing.T) {
	// Sample 3 sits outside the latitude range, so its observations must
	// not count toward prevalence.
	lats := []float64{5, 15, 25, 95}
	b := matrix.NewBuilder[string](testutil.SampleIDs(4))
	require.NoError(t, b.Add("edge", matrix.Entry{Sample: 0, Value: 1}, matrix.Entry{Sample: 3, Value: 1}))
	require.NoError(t, b.Add("outside", matrix.Entry{Sample: 3, Value: 2}))
	require.NoError(t, b.Add("inside", matrix.Entry{Sample: 0, Value: 1}, matrix.Entry{Sample: 1, Value: 1}))

	c, err := Latitude[string](b.Build(), lats).
		Range(0, 40).
		Bins(4).
		PrevMin(2).
		BinsObsMinFactor(0).
		Build()
	require.NoError(t, err)

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	// One of edge's two observations is out of range: prevalence 1, not 2.
	edge := findExclusion(t, report.Excluded, "edge")
	assert.Equal(t, ExcludeLowPrevalence, edge.Reason)
	assert.Equal(t, 1, edge.Prevalence)

	// All observations out of range behaves like an absent feature.
	outside := findExclusion(t, report.Excluded, "outside")
	assert.Equal(t, ExcludeAllZero, outside.Reason)
	assert.Equal(t, 0, outside.Prevalence)

	inside := findResult(t, report.Results, "inside")
	assert.Equal(t, 2, inside.Prevalence)
}

func TestScreenAdjust(t *testing.T) {
	c, _ := gradientFixture(t)

	report, err := c.Screen().Adjust().Execute(context.Background())
	require.NoError(t, err)

	for _, r := range report.Results {
		if math.IsNaN(r.PValue) {
			assert.True(t, math.IsNaN(r.AdjustedP))
			continue
		}
		assert.GreaterOrEqual(t, r.AdjustedP, r.PValue)
		assert.LessOrEqual(t, r.AdjustedP, 1.0)
	}
}

func TestScreenLogMeans(t *testing.T) {
	c, _ := gradientFixture(t)

	report, err := c.Screen().LogMeans().Execute(context.Background())
	require.NoError(t, err)

	grad := findResult(t, report.Results, "gradient")
	// Log compression weakens but does not destroy a monotone gradient.
	assert.Greater(t, grad.Correlation, 0.7)
}

func TestScreenNoReference(t *testing.T) {
	m, err := matrix.FromDense([]string{"f"}, []string{"s0", "s1"}, [][]float64{{1}, {2}})
	require.NoError(t, err)

	c, err := Clusters[string](m, []string{"a", "b"}).Build()
	require.NoError(t, err)

	_, err = c.Screen().Execute(context.Background())
	assert.ErrorIs(t, err, ErrNoReference)

	for _, err := range c.Screen().Stream(context.Background()) {
		assert.ErrorIs(t, err, ErrNoReference)
	}
}

func TestScreenStream(t *testing.T) {
	c, _ := gradientFixture(t)

	var streamed []Result[string]
	for r, err := range c.Screen().Stream(context.Background()) {
		require.NoError(t, err)
		streamed = append(streamed, r)
	}

	report, err := c.Screen().Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, streamed, len(report.Results))
	for i := range streamed {
		assert.Equal(t, report.Results[i].Feature, streamed[i].Feature)
		if math.IsNaN(report.Results[i].Correlation) {
			assert.True(t, math.IsNaN(streamed[i].Correlation))
		} else {
			assert.Equal(t, report.Results[i].Correlation, streamed[i].Correlation)
		}
	}
}

func TestScreenStreamEarlyTermination(t *testing.T) {
	c, _ := gradientFixture(t)

	n := 0
	for _, err := range c.Screen().Stream(context.Background()) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestScreenCancellation(t *testing.T) {
	c, _ := gradientFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Screen().Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScreenEnvironments(t *testing.T) {
	const samples = 120
	lats := make([]float64, samples)
	envs := make([]string, samples)
	for i := range lats {
		lats[i] = float64(i%90) + 0.5
		if i%2 == 0 {
			envs[i] = "surface"
		} else {
			envs[i] = "deep"
		}
	}

	b := matrix.NewBuilder[string](testutil.SampleIDs(samples))
	for i := 0; i < samples; i++ {
		// Gradient only in surface samples.
		if i%2 == 0 {
			require.NoError(t, b.Add("surface-gradient", matrix.Entry{Sample: i, Value: lats[i]}))
		}
		require.NoError(t, b.Add("everywhere", matrix.Entry{Sample: i, Value: 1}))
	}

	c, err := Latitude[string](b.Build(), lats).
		Range(0, 90).
		Bins(10).
		PrevMin(5).
		BinsObsMinFactor(2).
		Environments(envs).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"surface", "deep"}, c.Environments())

	report, err := c.Screen().Adjust().Execute(context.Background())
	require.NoError(t, err)

	// surface-gradient survives in the surface pass and is all-zero in
	// the deep pass.
	var surface *Result[string]
	for i := range report.Results {
		if report.Results[i].Feature == "surface-gradient" && report.Results[i].Environment == "surface" {
			surface = &report.Results[i]
		}
	}
	require.NotNil(t, surface)
	assert.Greater(t, surface.Correlation, 0.99)

	foundDeepExclusion := false
	for _, e := range report.Excluded {
		if e.Feature == "surface-gradient" && e.Environment == "deep" {
			assert.Equal(t, ExcludeAllZero, e.Reason)
			foundDeepExclusion = true
		}
	}
	assert.True(t, foundDeepExclusion)

	// Adjustment is global: every surviving result carries an adjusted p.
	for _, r := range report.Results {
		if !math.IsNaN(r.PValue) {
			assert.False(t, math.IsNaN(r.AdjustedP))
		}
	}
}
