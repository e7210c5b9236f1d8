package cluster

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinehq/redline/internal/types"
)

func textAt(id string, start int) *types.Annotation {
	return &types.Annotation{
		ID:       id,
		Location: types.Location{Text: &types.TextSpan{Start: start, End: start + 5}},
		Comments: []types.Comment{{AuthorID: "u1", AuthorName: "Alice", Text: "fix this", CreatedAt: time.Now()}},
	}
}

func canvasAt(id string, x, y float64) *types.Annotation {
	return &types.Annotation{
		ID:       id,
		Location: types.Location{Canvas: &types.CanvasPoint{X: x, Y: y}},
		Comments: []types.Comment{{AuthorID: "u1", AuthorName: "Alice", Text: "move this", CreatedAt: time.Now()}},
	}
}

func TestDistanceTextSpans(t *testing.T) {
	a := textAt("a", 10)
	b := textAt("b", 45)
	assert.Equal(t, 35.0, Distance(a, b))
	assert.Equal(t, 35.0, Distance(b, a))
	assert.Equal(t, 0.0, Distance(a, a))
}

func TestDistanceCanvasPoints(t *testing.T) {
	a := canvasAt("a", 0, 0)
	b := canvasAt("b", 3, 4)
	assert.Equal(t, 5.0, Distance(a, b))
	assert.Equal(t, 5.0, Distance(b, a))
}

func TestDistanceCrossTypeIsInfinite(t *testing.T) {
	a := textAt("a", 0)
	b := canvasAt("b", 0, 0)
	assert.True(t, math.IsInf(Distance(a, b), 1))
	assert.True(t, math.IsInf(Distance(b, a), 1))
}

func TestDistanceMissingCanvasCoordinates(t *testing.T) {
	a := canvasAt("a", 0, 0)
	b := &types.Annotation{
		ID:       "b",
		Location: types.Location{Canvas: &types.CanvasPoint{}},
		Comments: a.Comments,
	}
	// Zero-valued coordinates are treated as the origin.
	assert.Equal(t, 0.0, Distance(a, b))
}

func TestGroupEmptyInput(t *testing.T) {
	assert.Empty(t, Group(nil, DefaultTextThreshold))
}

func TestGroupSingleAnnotation(t *testing.T) {
	clusters := Group([]*types.Annotation{textAt("a", 10)}, DefaultTextThreshold)
	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].Members, 1)
	assert.Equal(t, "a", clusters[0].Seed().ID)
}

func TestGroupSeedCenteredMembership(t *testing.T) {
	// b and c are both within 50 of seed a, but 80 apart from each
	// other. Seed-centered grouping still puts all three together.
	a := textAt("a", 100)
	b := textAt("b", 60)
	c := textAt("c", 140)
	clusters := Group([]*types.Annotation{a, b, c}, DefaultTextThreshold)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Members, 3)
	assert.Equal(t, "a", clusters[0].Seed().ID)
}

func TestGroupNotTransitive(t *testing.T) {
	// b is within threshold of a; c is within threshold of b but not
	// of a. Seed-centered grouping leaves c in its own cluster.
	a := textAt("a", 0)
	b := textAt("b", 40)
	c := textAt("c", 80)
	clusters := Group([]*types.Annotation{a, b, c}, DefaultTextThreshold)
	require.Len(t, clusters, 2)
	assert.Equal(t, []string{"a", "b"}, memberIDs(clusters[0]))
	assert.Equal(t, []string{"c"}, memberIDs(clusters[1]))
}

func TestGroupPartitionsInput(t *testing.T) {
	input := []*types.Annotation{
		textAt("a", 0), textAt("b", 10), textAt("c", 200),
		canvasAt("d", 5, 5), canvasAt("e", 500, 500), textAt("f", 210),
	}
	clusters := Group(input, DefaultTextThreshold)

	seen := make(map[string]int)
	for _, c := range clusters {
		require.NotEmpty(t, c.Members)
		for _, m := range c.Members {
			seen[m.ID]++
		}
	}
	require.Len(t, seen, len(input))
	for id, count := range seen {
		assert.Equal(t, 1, count, "annotation %s appears in %d clusters", id, count)
	}
}

func TestGroupNeverMixesLocationTypes(t *testing.T) {
	input := []*types.Annotation{textAt("a", 0), canvasAt("b", 0, 0)}
	clusters := Group(input, 1e9)
	assert.Len(t, clusters, 2)
}

func TestGroupClusterOrderFollowsSeedOrder(t *testing.T) {
	input := []*types.Annotation{textAt("a", 0), textAt("b", 500), textAt("c", 1000)}
	clusters := Group(input, DefaultTextThreshold)
	require.Len(t, clusters, 3)
	assert.Equal(t, "a", clusters[0].Seed().ID)
	assert.Equal(t, "b", clusters[1].Seed().ID)
	assert.Equal(t, "c", clusters[2].Seed().ID)
}

func TestThresholdFor(t *testing.T) {
	text := []*types.Annotation{textAt("a", 0), textAt("b", 10), canvasAt("c", 0, 0)}
	canvas := []*types.Annotation{canvasAt("a", 0, 0), canvasAt("b", 1, 1), textAt("c", 0)}

	assert.Equal(t, DefaultTextThreshold, ThresholdFor(text))
	assert.Equal(t, DefaultCanvasThreshold, ThresholdFor(canvas))
	// Ties resolve to the text threshold.
	tie := []*types.Annotation{textAt("a", 0), canvasAt("b", 0, 0)}
	assert.Equal(t, DefaultTextThreshold, ThresholdFor(tie))
}

func memberIDs(c *Cluster) []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}
	return ids
}
