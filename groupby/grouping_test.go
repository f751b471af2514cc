package groupby

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAssignments(t *testing.T) {
	g, err := FromAssignments([]int{0, 2, 1, 0, -1}, 3)
	require.NoError(t, err)

	assert.Equal(t, 5, g.NumSamples())
	assert.Equal(t, 3, g.NumGroups())
	assert.Equal(t, []int{2, 1, 1}, g.Sizes())
	assert.Equal(t, -1, g.Assignment(4))
}

func TestFromAssignmentsOutOfRange(t *testing.T) {
	_, err := FromAssignments([]int{0, 3}, 3)

	var gr *ErrGroupOutOfRange
	require.ErrorAs(t, err, &gr)
	assert.Equal(t, 3, gr.Group)
	assert.Equal(t, 1, gr.Sample)
}

func TestFromAssignmentsInvalidNumGroups(t *testing.T) {
	_, err := FromAssignments([]int{0}, 0)
	assert.Error(t, err)
}

func TestFromLabels(t *testing.T) {
	g, index := FromLabels([]string{"b", "a", "b", "c", "a"})

	assert.Equal(t, 3, g.NumGroups())
	// First-seen order.
	assert.Equal(t, map[string]int{"b": 0, "a": 1, "c": 2}, index)
	assert.Equal(t, []int{2, 2, 1}, g.Sizes())
	assert.Equal(t, "b", g.Label(0))
	assert.Equal(t, "c", g.Label(2))
}

func TestWithLabels(t *testing.T) {
	g, err := FromAssignments([]int{0, 1}, 2)
	require.NoError(t, err)

	labeled, err := g.WithLabels([]string{"north", "south"})
	require.NoError(t, err)
	assert.Equal(t, "south", labeled.Label(1))

	_, err = g.WithLabels([]string{"just-one"})
	assert.Error(t, err)
}

func TestRestrict(t *testing.T) {
	g, err := FromAssignments([]int{0, 0, 1, 1, -1}, 2)
	require.NoError(t, err)

	keep := roaring.BitmapOf(0, 2, 4)
	r := g.Restrict(keep)

	assert.Equal(t, []int{1, 1}, r.Sizes())
	assert.Equal(t, 0, r.Assignment(0))
	assert.Equal(t, -1, r.Assignment(1))
	assert.Equal(t, 1, r.Assignment(2))
	// Masked stays masked even when kept.
	assert.Equal(t, -1, r.Assignment(4))

	// Receiver untouched.
	assert.Equal(t, []int{2, 2}, g.Sizes())
}

func TestLabelFallback(t *testing.T) {
	g, err := FromAssignments([]int{0, 1}, 2)
	require.NoError(t, err)

	assert.Equal(t, "1", g.Label(1))
	assert.Nil(t, g.Labels())
}
