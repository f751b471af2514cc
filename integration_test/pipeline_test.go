package integration_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataseq/cline"
	"github.com/strataseq/cline/blobstore"
	"github.com/strataseq/cline/cache"
	"github.com/strataseq/cline/matrix"
	"github.com/strataseq/cline/testutil"
)

// surveyFixture is a deterministic survey with known structure: one
// feature tracking the latitudinal gradient, one flat, one rare, one
// absent. Latitudes sweep both hemispheres so screens run over Abs().
type surveyFixture struct {
	mat       *matrix.Matrix[string]
	latitudes []float64
}

func newSurveyFixture(t *testing.T) *surveyFixture {
	t.Helper()

	const n = 240
	rng := testutil.NewRNG(7)

	latitudes := make([]float64, n)
	for i := range latitudes {
		latitudes[i] = float64(i%180) - 89.5
	}

	gradient := rng.GradientFeature(latitudes, 0.2, 0.1)
	flat := rng.GradientFeature(latitudes, 0, 0.1)

	rare := make([]float64, n)
	rare[3], rare[17], rare[91] = 1.5, 2.5, 0.5

	absent := make([]float64, n)

	features := []string{"taxon-gradient", "taxon-flat", "taxon-rare", "taxon-absent"}
	data := make([][]float64, n)
	for i := range data {
		data[i] = []float64{gradient[i], flat[i], rare[i], absent[i]}
	}

	mat, err := matrix.FromDense(features, testutil.SampleIDs(n), data)
	require.NoError(t, err)

	return &surveyFixture{mat: mat, latitudes: latitudes}
}

func (f *surveyFixture) build(t *testing.T) *cline.Cline[string] {
	t.Helper()

	c, err := cline.Latitude(f.mat, f.latitudes).
		Abs().
		Bins(9).
		PrevMin(10).
		BinsObsMinFactor(2).
		Workers(4).
		Build()
	require.NoError(t, err)
	return c
}

// TestScreenPersistRoundTrip runs the full pipeline against each store
// backend: screen, persist the report, load it back, and compare.
func TestScreenPersistRoundTrip(t *testing.T) {
	backends := []struct {
		name    string
		factory func(t *testing.T) blobstore.BlobStore
	}{
		{
			name: "Memory",
			factory: func(t *testing.T) blobstore.BlobStore {
				return blobstore.NewMemoryStore()
			},
		},
		{
			name: "Local",
			factory: func(t *testing.T) blobstore.BlobStore {
				return blobstore.NewLocalStore(t.TempDir())
			},
		},
		{
			name: "CachedLocal",
			factory: func(t *testing.T) blobstore.BlobStore {
				inner := blobstore.NewLocalStore(t.TempDir())
				return blobstore.NewCachingStore(inner, cache.NewLRU(1<<20, nil), 4096)
			},
		},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctx := context.Background()
			fixture := newSurveyFixture(t)
			c := fixture.build(t)

			report, err := c.Screen().Adjust().Execute(ctx)
			require.NoError(t, err)
			require.Len(t, report.Results, 2)
			require.Len(t, report.Excluded, 2)

			store := backend.factory(t)
			require.NoError(t, c.SaveReport(ctx, store, "reports/run-1.cln", report))

			loaded, err := cline.LoadReport[string](ctx, store, "reports/run-1.cln")
			require.NoError(t, err)

			requireReportsEqual(t, report, loaded)
		})
	}
}

// TestScreenDetectsGradient checks the screen separates the gradient
// feature from flat, rare, and absent ones.
func TestScreenDetectsGradient(t *testing.T) {
	ctx := context.Background()
	fixture := newSurveyFixture(t)
	c := fixture.build(t)

	report, err := c.Screen().Adjust().Execute(ctx)
	require.NoError(t, err)

	byFeature := make(map[string]cline.Result[string])
	for _, r := range report.Results {
		byFeature[r.Feature] = r
	}

	grad, ok := byFeature["taxon-gradient"]
	require.True(t, ok)
	assert.Greater(t, grad.Correlation, 0.9)
	assert.Less(t, grad.AdjustedP, 0.01)
	assert.Equal(t, 9, grad.GroupsObserved)

	flat, ok := byFeature["taxon-flat"]
	require.True(t, ok)
	assert.Less(t, math.Abs(flat.Correlation), math.Abs(grad.Correlation))

	reasons := make(map[string]cline.ExclusionReason)
	for _, e := range report.Excluded {
		reasons[e.Feature] = e.Reason
	}
	assert.Equal(t, cline.ExcludeLowPrevalence, reasons["taxon-rare"])
	assert.Equal(t, cline.ExcludeAllZero, reasons["taxon-absent"])
}

// TestMatrixSnapshotRescreen persists the matrix, reloads it, and
// verifies a screen over the reloaded matrix reproduces the original
// results exactly.
func TestMatrixSnapshotRescreen(t *testing.T) {
	ctx := context.Background()
	fixture := newSurveyFixture(t)
	c := fixture.build(t)

	store := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, c.SaveMatrix(ctx, store, "matrices/survey.cln"))

	mat, err := cline.LoadMatrix[string](ctx, store, "matrices/survey.cln")
	require.NoError(t, err)
	require.Equal(t, fixture.mat.NumFeatures(), mat.NumFeatures())
	require.Equal(t, fixture.mat.NumSamples(), mat.NumSamples())

	reloaded, err := cline.Latitude(mat, fixture.latitudes).
		Abs().
		Bins(9).
		PrevMin(10).
		BinsObsMinFactor(2).
		Build()
	require.NoError(t, err)

	want, err := c.Screen().Adjust().Execute(ctx)
	require.NoError(t, err)
	got, err := reloaded.Screen().Adjust().Execute(ctx)
	require.NoError(t, err)

	requireReportsEqual(t, want, got)
}

// TestCachedLoadHitsCache loads the same report twice through a caching
// store and verifies the second load is served from cached blocks.
func TestCachedLoadHitsCache(t *testing.T) {
	ctx := context.Background()
	fixture := newSurveyFixture(t)
	c := fixture.build(t)

	report, err := c.Screen().Execute(ctx)
	require.NoError(t, err)

	lru := cache.NewLRU(1<<20, nil)
	store := blobstore.NewCachingStore(blobstore.NewLocalStore(t.TempDir()), lru, 4096)

	require.NoError(t, c.SaveReport(ctx, store, "reports/cached.cln", report))

	_, err = cline.LoadReport[string](ctx, store, "reports/cached.cln")
	require.NoError(t, err)
	hitsAfterFirst, _ := lru.Stats()

	loaded, err := cline.LoadReport[string](ctx, store, "reports/cached.cln")
	require.NoError(t, err)
	hitsAfterSecond, _ := lru.Stats()

	assert.Greater(t, hitsAfterSecond, hitsAfterFirst)
	requireReportsEqual(t, report, loaded)
}

// TestStreamMatchesExecute verifies the streaming path yields the same
// surviving features, in the same order, as the joined report.
func TestStreamMatchesExecute(t *testing.T) {
	ctx := context.Background()
	fixture := newSurveyFixture(t)
	c := fixture.build(t)

	report, err := c.Screen().Execute(ctx)
	require.NoError(t, err)

	var streamed []cline.Result[string]
	for r, err := range c.Screen().Stream(ctx) {
		require.NoError(t, err)
		streamed = append(streamed, r)
	}

	require.Len(t, streamed, len(report.Results))
	for i, want := range report.Results {
		assert.Equal(t, want.Feature, streamed[i].Feature)
		requireFloatsEqual(t, want.Correlation, streamed[i].Correlation)
		requireFloatsEqual(t, want.PValue, streamed[i].PValue)
	}
}

func requireReportsEqual(t *testing.T, want, got *cline.Report[string]) {
	t.Helper()

	require.Len(t, got.Results, len(want.Results))
	for i := range want.Results {
		w, g := want.Results[i], got.Results[i]
		assert.Equal(t, w.Feature, g.Feature)
		assert.Equal(t, w.Environment, g.Environment)
		assert.Equal(t, w.GroupsObserved, g.GroupsObserved)
		assert.Equal(t, w.Prevalence, g.Prevalence)
		requireFloatsEqual(t, w.Correlation, g.Correlation)
		requireFloatsEqual(t, w.PValue, g.PValue)
		requireFloatsEqual(t, w.AdjustedP, g.AdjustedP)
	}
	assert.Equal(t, want.Excluded, got.Excluded)
}

func requireFloatsEqual(t *testing.T, want, got float64) {
	t.Helper()

	if math.IsNaN(want) {
		require.True(t, math.IsNaN(got))
		return
	}
	require.InDelta(t, want, got, 1e-12)
}
