package deduplication

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redlinehq/redline/internal/cluster"
	"github.com/redlinehq/redline/internal/similarity"
	"github.com/redlinehq/redline/internal/types"
)

// Deduplicator merges near-duplicate annotations within a cluster
type Deduplicator interface {
	// Deduplicate compares cluster members pairwise via the similarity
	// oracle and merges near-duplicates into their earliest occurrence.
	// The input cluster is never mutated; survivors in the result are
	// fresh annotation copies.
	//
	// Oracle failures never fail the pipeline when FailOpen is set:
	// the result carries the original cluster plus a warning instead.
	Deduplicate(ctx context.Context, c *cluster.Cluster) (*Result, error)
}

// Result is the outcome of deduplicating one cluster
type Result struct {
	// Cluster holds the surviving members in their original relative
	// order. Merged members carry the absorbed comments appended after
	// their own.
	Cluster *cluster.Cluster

	// Sources maps each surviving annotation ID to the IDs it merged,
	// itself first. Every input member appears in exactly one value.
	Sources map[string][]string

	// Warning is set when the cluster was returned unchanged because
	// the oracle failed (fail-open). Empty on clean runs.
	Warning string

	// Stats about the deduplication of this cluster
	Stats Stats
}

// Stats provides metrics about one cluster's deduplication
type Stats struct {
	MembersIn        int   `json:"members_in"`
	MembersOut       int   `json:"members_out"`
	MergedCount      int   `json:"merged_count"`
	ComparisonsMade  int   `json:"comparisons_made"`
	SkippedOversize  bool  `json:"skipped_oversize"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// Validate checks if the result is internally consistent
func (r *Result) Validate() error {
	if r.Cluster == nil || len(r.Cluster.Members) == 0 {
		return fmt.Errorf("result cluster cannot be empty")
	}
	if r.Stats.MembersOut != len(r.Cluster.Members) {
		return fmt.Errorf("stats.members_out (%d) does not match cluster size (%d)",
			r.Stats.MembersOut, len(r.Cluster.Members))
	}
	if r.Stats.MembersIn != r.Stats.MembersOut+r.Stats.MergedCount {
		return fmt.Errorf("stats.members_in (%d) does not match out (%d) + merged (%d)",
			r.Stats.MembersIn, r.Stats.MembersOut, r.Stats.MergedCount)
	}
	total := 0
	for id, srcs := range r.Sources {
		if len(srcs) == 0 {
			return fmt.Errorf("sources for %s cannot be empty", id)
		}
		if srcs[0] != id {
			return fmt.Errorf("sources for %s must list the survivor first (got %s)", id, srcs[0])
		}
		total += len(srcs)
	}
	if total != r.Stats.MembersIn {
		return fmt.Errorf("sources cover %d members, expected %d", total, r.Stats.MembersIn)
	}
	return nil
}

// Engine implements Deduplicator against a similarity oracle
type Engine struct {
	oracle similarity.Oracle
	config Config
}

// Compile-time check that Engine implements Deduplicator
var _ Deduplicator = (*Engine)(nil)

// NewEngine creates a deduplication engine.
//
// The oracle must be non-nil; config must validate. The engine itself
// is stateless and safe for concurrent use across clusters.
func NewEngine(oracle similarity.Oracle, config Config) (*Engine, error) {
	if oracle == nil {
		return nil, fmt.Errorf("similarity oracle cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{oracle: oracle, config: config}, nil
}

// Deduplicate merges near-duplicate members of one cluster
func (e *Engine) Deduplicate(ctx context.Context, c *cluster.Cluster) (*Result, error) {
	startTime := time.Now()
	n := len(c.Members)

	// Nothing to compare, or too expensive to compare.
	if n <= 1 || n > e.config.MaxClusterSize {
		result := passthrough(c)
		result.Stats.SkippedOversize = n > e.config.MaxClusterSize
		result.Stats.ProcessingTimeMs = time.Since(startTime).Milliseconds()
		if result.Stats.SkippedOversize {
			log.Printf("[DEDUP] cluster %s has %d members (max %d), skipping deduplication",
				c.Seed().ID, n, e.config.MaxClusterSize)
		}
		return result, nil
	}

	// Representative text is fixed up front from each member's own
	// comments, so merge order cannot affect later comparisons.
	reps := make([]string, n)
	for i, m := range c.Members {
		reps[i] = m.JoinedCommentText()
	}

	survivors := make([]*types.Annotation, 0, n)
	sources := make(map[string][]string, n)
	duplicate := make([]bool, n)
	comparisons := 0

	for i := 0; i < n; i++ {
		if duplicate[i] {
			continue
		}
		keeper := copyAnnotation(c.Members[i])
		sources[keeper.ID] = []string{keeper.ID}

		for j := i + 1; j < n; j++ {
			if duplicate[j] {
				continue
			}

			sim, err := e.compare(ctx, reps[i], reps[j])
			comparisons++
			if err != nil {
				if !e.config.FailOpen {
					return nil, fmt.Errorf("similarity check failed for cluster %s: %w", c.Seed().ID, err)
				}
				log.Printf("[DEDUP] oracle failed for cluster %s (%v), returning cluster unchanged", c.Seed().ID, err)
				result := passthrough(c)
				result.Warning = fmt.Sprintf("deduplication skipped for cluster %s: %v", c.Seed().ID, err)
				result.Stats.ComparisonsMade = comparisons
				result.Stats.ProcessingTimeMs = time.Since(startTime).Milliseconds()
				return result, nil
			}

			if sim >= e.config.SimilarityThreshold {
				absorbed := c.Members[j]
				keeper.Comments = append(keeper.Comments, absorbed.Comments...)
				sources[keeper.ID] = append(sources[keeper.ID], absorbed.ID)
				duplicate[j] = true
				log.Printf("[DEDUP] merged %s into %s (similarity %.2f)", absorbed.ID, keeper.ID, sim)
			}
		}

		survivors = append(survivors, keeper)
	}

	return &Result{
		Cluster: &cluster.Cluster{Members: survivors},
		Sources: sources,
		Stats: Stats{
			MembersIn:        n,
			MembersOut:       len(survivors),
			MergedCount:      n - len(survivors),
			ComparisonsMade:  comparisons,
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		},
	}, nil
}

// compare runs one oracle call under the per-call timeout
func (e *Engine) compare(ctx context.Context, a, b string) (float64, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.config.PerCallTimeout)
	defer cancel()

	sim, err := e.oracle.Compare(callCtx, a, b)
	if err != nil {
		return 0, err
	}
	if sim < 0.0 || sim > 1.0 {
		return 0, fmt.Errorf("oracle returned similarity %.4f outside [0,1]", sim)
	}
	return sim, nil
}

// passthrough builds a Result that returns the cluster as-is
func passthrough(c *cluster.Cluster) *Result {
	sources := make(map[string][]string, len(c.Members))
	for _, m := range c.Members {
		sources[m.ID] = []string{m.ID}
	}
	return &Result{
		Cluster: c,
		Sources: sources,
		Stats: Stats{
			MembersIn:  len(c.Members),
			MembersOut: len(c.Members),
		},
	}
}

// copyAnnotation makes a shallow copy with its own comments slice so
// merging never mutates the caller's annotations.
func copyAnnotation(a *types.Annotation) *types.Annotation {
	dup := *a
	dup.Comments = make([]types.Comment, len(a.Comments))
	copy(dup.Comments, a.Comments)
	return &dup
}
