package deduplication

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redlinehq/redline/internal/cluster"
	"github.com/redlinehq/redline/internal/similarity"
	"github.com/redlinehq/redline/internal/types"
)

func member(id, text string) *types.Annotation {
	return &types.Annotation{
		ID:       id,
		Location: types.Location{Text: &types.TextSpan{Start: 0, End: 10}},
		Comments: []types.Comment{{AuthorID: "u-" + id, AuthorName: "Author " + id, Text: text, CreatedAt: time.Now()}},
	}
}

func clusterOf(members ...*types.Annotation) *cluster.Cluster {
	return &cluster.Cluster{Members: members}
}

// always returns the same similarity for every pair
func constantOracle(sim float64) similarity.Oracle {
	return similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		return sim, nil
	})
}

// scores listed pairs high, everything else zero
func pairOracle(pairs map[[2]string]float64) similarity.Oracle {
	return similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		if sim, ok := pairs[[2]string{a, b}]; ok {
			return sim, nil
		}
		if sim, ok := pairs[[2]string{b, a}]; ok {
			return sim, nil
		}
		return 0, nil
	})
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle cannot be nil")

	bad := DefaultConfig()
	bad.SimilarityThreshold = 1.5
	_, err = NewEngine(constantOracle(0), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity_threshold")
}

func TestDeduplicateSingleMemberNoOp(t *testing.T) {
	engine, err := NewEngine(constantOracle(1.0), DefaultConfig())
	require.NoError(t, err)

	c := clusterOf(member("a", "fix the typo"))
	result, err := engine.Deduplicate(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Len(t, result.Cluster.Members, 1)
	assert.Equal(t, []string{"a"}, result.Sources["a"])
	assert.Zero(t, result.Stats.ComparisonsMade)
}

func TestDeduplicateMergesNearDuplicates(t *testing.T) {
	engine, err := NewEngine(pairOracle(map[[2]string]float64{
		{"Fix the typo in paragraph 2", "Please correct the typo in second paragraph"}: 0.92,
	}), DefaultConfig())
	require.NoError(t, err)

	a := member("a", "Fix the typo in paragraph 2")
	b := member("b", "Please correct the typo in second paragraph")
	c := member("c", "The chart colors are wrong")

	result, err := engine.Deduplicate(context.Background(), clusterOf(a, b, c))
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	require.Len(t, result.Cluster.Members, 2)
	merged := result.Cluster.Members[0]
	assert.Equal(t, "a", merged.ID)
	// Absorbed comments append after the survivor's own.
	require.Len(t, merged.Comments, 2)
	assert.Equal(t, "Fix the typo in paragraph 2", merged.Comments[0].Text)
	assert.Equal(t, "Please correct the typo in second paragraph", merged.Comments[1].Text)
	assert.Equal(t, []string{"a", "b"}, result.Sources["a"])
	assert.Equal(t, []string{"c"}, result.Sources["c"])
	assert.Equal(t, 1, result.Stats.MergedCount)
}

func TestDeduplicateBelowThresholdKeepsAll(t *testing.T) {
	engine, err := NewEngine(constantOracle(0.84), DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Deduplicate(context.Background(), clusterOf(
		member("a", "one"), member("b", "two"), member("c", "three")))
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Len(t, result.Cluster.Members, 3)
	assert.Zero(t, result.Stats.MergedCount)
	// 3 members, all pairs compared.
	assert.Equal(t, 3, result.Stats.ComparisonsMade)
}

func TestDeduplicateAtThresholdMerges(t *testing.T) {
	engine, err := NewEngine(constantOracle(0.85), DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Deduplicate(context.Background(), clusterOf(
		member("a", "one"), member("b", "two")))
	require.NoError(t, err)
	assert.Len(t, result.Cluster.Members, 1)
}

func TestDeduplicateDoesNotMutateInput(t *testing.T) {
	engine, err := NewEngine(constantOracle(1.0), DefaultConfig())
	require.NoError(t, err)

	a := member("a", "fix it")
	b := member("b", "please fix it")
	_, err = engine.Deduplicate(context.Background(), clusterOf(a, b))
	require.NoError(t, err)

	assert.Len(t, a.Comments, 1)
	assert.Len(t, b.Comments, 1)
}

func TestDeduplicateExcludesMergedFromComparisons(t *testing.T) {
	calls := [][2]string{}
	oracle := similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		calls = append(calls, [2]string{a, b})
		return 1.0, nil
	})
	engine, err := NewEngine(oracle, DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Deduplicate(context.Background(), clusterOf(
		member("a", "ta"), member("b", "tb"), member("c", "tc")))
	require.NoError(t, err)

	// b and c both merge into a; b is never compared against c.
	assert.Len(t, result.Cluster.Members, 1)
	assert.Equal(t, [][2]string{{"ta", "tb"}, {"ta", "tc"}}, calls)
	assert.Equal(t, []string{"a", "b", "c"}, result.Sources["a"])
}

func TestDeduplicateCommentCountConserved(t *testing.T) {
	engine, err := NewEngine(constantOracle(0.9), DefaultConfig())
	require.NoError(t, err)

	members := []*types.Annotation{
		member("a", "one"), member("b", "two"), member("c", "three"), member("d", "four"),
	}
	totalIn := 0
	for _, m := range members {
		totalIn += len(m.Comments)
	}

	result, err := engine.Deduplicate(context.Background(), clusterOf(members...))
	require.NoError(t, err)

	totalOut := 0
	for _, m := range result.Cluster.Members {
		totalOut += len(m.Comments)
	}
	assert.Equal(t, totalIn, totalOut)
}

func TestDeduplicateOversizeClusterSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClusterSize = 3

	oracleCalls := 0
	oracle := similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		oracleCalls++
		return 1.0, nil
	})
	engine, err := NewEngine(oracle, cfg)
	require.NoError(t, err)

	c := clusterOf(member("a", "1"), member("b", "2"), member("c", "3"), member("d", "4"))
	result, err := engine.Deduplicate(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Len(t, result.Cluster.Members, 4)
	assert.True(t, result.Stats.SkippedOversize)
	assert.Zero(t, oracleCalls)
}

func TestDeduplicateFailOpenOnOracleError(t *testing.T) {
	oracle := similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		return 0, fmt.Errorf("%w: connection refused", similarity.ErrOracleUnavailable)
	})
	engine, err := NewEngine(oracle, DefaultConfig())
	require.NoError(t, err)

	a := member("a", "fix it")
	b := member("b", "please fix it")
	result, err := engine.Deduplicate(context.Background(), clusterOf(a, b))
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	// Cluster comes back unchanged with a warning.
	assert.Len(t, result.Cluster.Members, 2)
	assert.NotEmpty(t, result.Warning)
	assert.Contains(t, result.Warning, "deduplication skipped")
}

func TestDeduplicateFailClosedWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailOpen = false

	oracle := similarity.Func(func(ctx context.Context, a, b string) (float64, error) {
		return 0, errors.New("boom")
	})
	engine, err := NewEngine(oracle, cfg)
	require.NoError(t, err)

	_, err = engine.Deduplicate(context.Background(), clusterOf(member("a", "1"), member("b", "2")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "similarity check failed")
}

func TestDeduplicateRejectsOutOfRangeScores(t *testing.T) {
	engine, err := NewEngine(constantOracle(1.5), DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Deduplicate(context.Background(), clusterOf(member("a", "1"), member("b", "2")))
	require.NoError(t, err)
	// Out-of-range score counts as oracle failure: fail open.
	assert.Len(t, result.Cluster.Members, 2)
	assert.NotEmpty(t, result.Warning)
}

func TestDeduplicatePreservesSurvivorOrder(t *testing.T) {
	engine, err := NewEngine(pairOracle(map[[2]string]float64{
		{"tb", "td"}: 0.95,
	}), DefaultConfig())
	require.NoError(t, err)

	result, err := engine.Deduplicate(context.Background(), clusterOf(
		member("a", "ta"), member("b", "tb"), member("c", "tc"), member("d", "td")))
	require.NoError(t, err)

	ids := make([]string, len(result.Cluster.Members))
	for i, m := range result.Cluster.Members {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, []string{"b", "d"}, result.Sources["b"])
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{name: "default is valid", mutate: func(c *Config) {}},
		{
			name:        "negative threshold",
			mutate:      func(c *Config) { c.SimilarityThreshold = -0.1 },
			expectError: "similarity_threshold",
		},
		{
			name:        "zero cluster size",
			mutate:      func(c *Config) { c.MaxClusterSize = 0 },
			expectError: "max_cluster_size must be positive",
		},
		{
			name:        "huge cluster size",
			mutate:      func(c *Config) { c.MaxClusterSize = 1000 },
			expectError: "max_cluster_size too large",
		},
		{
			name:        "zero timeout",
			mutate:      func(c *Config) { c.PerCallTimeout = 0 },
			expectError: "per_call_timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REDLINE_DEDUP_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("REDLINE_DEDUP_MAX_CLUSTER_SIZE", "10")
	t.Setenv("REDLINE_DEDUP_FAIL_OPEN", "false")
	t.Setenv("REDLINE_DEDUP_TIMEOUT_SECS", "5")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.MaxClusterSize)
	assert.False(t, cfg.FailOpen)
	assert.Equal(t, 5*time.Second, cfg.PerCallTimeout)
}

func TestConfigFromEnvInvalidValue(t *testing.T) {
	t.Setenv("REDLINE_DEDUP_SIMILARITY_THRESHOLD", "not-a-number")
	_, err := ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDLINE_DEDUP_SIMILARITY_THRESHOLD")
}

func TestConfigFromEnvRejectsInvalidCombination(t *testing.T) {
	t.Setenv("REDLINE_DEDUP_SIMILARITY_THRESHOLD", "2.0")
	_, err := ConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration from environment")
}
