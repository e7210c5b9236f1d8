// Package pipeline orchestrates feedback canonicalization: raw
// annotations in, a short prioritized list of deduplicated change
// requests out.
//
// Stages run strictly downstream: validate -> filter -> classify ->
// cluster -> deduplicate -> synthesize -> threshold -> sort. The run
// holds no state between invocations and performs no writes; anything
// that goes wrong short of cancellation degrades to warnings on the
// report rather than an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/redlinehq/redline/internal/classify"
	"github.com/redlinehq/redline/internal/cluster"
	"github.com/redlinehq/redline/internal/deduplication"
	"github.com/redlinehq/redline/internal/synthesize"
	"github.com/redlinehq/redline/internal/types"
)

// ErrCancelled is returned when the run's context is cancelled. A
// cancelled run never emits partial results: the report carries zero
// change requests.
var ErrCancelled = errors.New("pipeline run cancelled")

// DefaultConfidenceFloor is the minimum confidence for an emitted
// change request.
const DefaultConfidenceFloor = 0.7

// Options control one pipeline run
type Options struct {
	// LocationFilter, when set, keeps only annotations whose location
	// satisfies the predicate (e.g. a text range or a canvas node).
	LocationFilter func(types.Location) bool

	// IncludeResolved keeps annotations whose threads were already
	// resolved upstream. Default: drop them.
	IncludeResolved bool

	// ConfidenceFloor overrides DefaultConfidenceFloor when > 0.
	ConfidenceFloor float64

	// ClusterThreshold overrides the automatic dominant-location-type
	// threshold when > 0.
	ClusterThreshold float64

	// MaxParallelClusters bounds concurrent cluster deduplication.
	// Default: 4. Clusters are independent, so only oracle pressure
	// limits this.
	MaxParallelClusters int
}

// Warning is a non-fatal problem encountered during a run
type Warning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Stats counts what each stage did with the batch
type Stats struct {
	Input           int `json:"input"`
	Malformed       int `json:"malformed"`
	FilteredOut     int `json:"filtered_out"`
	Resolved        int `json:"resolved"`
	NonActionable   int `json:"non_actionable"`
	Clusters        int `json:"clusters"`
	Merged          int `json:"merged"`
	BelowConfidence int `json:"below_confidence"`
	Emitted         int `json:"emitted"`
}

// Report is the full outcome of one run
type Report struct {
	Requests []*types.ChangeRequest `json:"requests"`
	Warnings []Warning              `json:"warnings,omitempty"`
	Stats    Stats                  `json:"stats"`
}

// Pipeline canonicalizes annotation batches. Construct once and reuse;
// runs are independent.
type Pipeline struct {
	dedup deduplication.Deduplicator
}

// New creates a pipeline around a deduplication engine
func New(dedup deduplication.Deduplicator) (*Pipeline, error) {
	if dedup == nil {
		return nil, fmt.Errorf("deduplicator cannot be nil")
	}
	return &Pipeline{dedup: dedup}, nil
}

// Run canonicalizes one batch of raw annotations.
//
// The returned error is non-nil only for cancellation; every other
// failure mode (malformed input, oracle trouble) shows up as warnings
// on the report. An empty input yields an empty report and no error.
func (p *Pipeline) Run(ctx context.Context, raw []*types.Annotation, opts Options) (*Report, error) {
	report := &Report{Stats: Stats{Input: len(raw)}}

	floor := opts.ConfidenceFloor
	if floor <= 0 {
		floor = DefaultConfidenceFloor
	}

	// Validate and filter. Relative input order survives every stage.
	actionable := p.filter(raw, opts, report)
	if len(actionable) == 0 {
		return report, nil
	}

	if err := ctx.Err(); err != nil {
		return cancelled(report)
	}

	// Cluster by spatial proximity.
	threshold := opts.ClusterThreshold
	if threshold <= 0 {
		threshold = cluster.ThresholdFor(actionable)
	}
	clusters := cluster.Group(actionable, threshold)
	report.Stats.Clusters = len(clusters)

	if err := ctx.Err(); err != nil {
		return cancelled(report)
	}

	// Deduplicate clusters in parallel; each cluster is independent
	// and failures stay contained to their own cluster.
	results, warnings := p.deduplicate(ctx, clusters, opts)
	report.Warnings = append(report.Warnings, warnings...)

	if err := ctx.Err(); err != nil {
		return cancelled(report)
	}

	// Synthesize, filter on confidence, and sort.
	var requests []*types.ChangeRequest
	for _, result := range results {
		report.Stats.Merged += result.Stats.MergedCount
		for _, member := range result.Cluster.Members {
			req := synthesize.Request(member, result.Sources[member.ID])
			if req.Confidence < floor {
				report.Stats.BelowConfidence++
				continue
			}
			requests = append(requests, req)
		}
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].Priority.Rank() < requests[j].Priority.Rank()
	})

	report.Requests = requests
	report.Stats.Emitted = len(requests)
	return report, nil
}

// filter applies validation, the location predicate, the resolved
// rule, and the actionability rule, in that order.
func (p *Pipeline) filter(raw []*types.Annotation, opts Options, report *Report) []*types.Annotation {
	var kept []*types.Annotation
	for _, a := range raw {
		if a == nil {
			report.Stats.Malformed++
			report.Warnings = append(report.Warnings, Warning{Stage: "validate", Message: "nil annotation dropped"})
			continue
		}
		if err := a.Validate(); err != nil {
			report.Stats.Malformed++
			report.Warnings = append(report.Warnings, Warning{
				Stage:   "validate",
				Message: fmt.Sprintf("annotation %s dropped: %v", a.ID, err),
			})
			log.Printf("[PIPELINE] dropping malformed annotation %s: %v", a.ID, err)
			continue
		}
		if opts.LocationFilter != nil && !opts.LocationFilter(a.Location) {
			report.Stats.FilteredOut++
			continue
		}
		if a.Resolved && !opts.IncludeResolved {
			report.Stats.Resolved++
			continue
		}
		// Approvals and questions carry no work; they stop here and
		// never reach scoring or synthesis.
		if !classify.Classify(a).Actionable() {
			report.Stats.NonActionable++
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// deduplicate runs the engine over every cluster concurrently and
// returns results in cluster order.
func (p *Pipeline) deduplicate(ctx context.Context, clusters []*cluster.Cluster, opts Options) ([]*deduplication.Result, []Warning) {
	parallel := opts.MaxParallelClusters
	if parallel <= 0 {
		parallel = 4
	}

	results := make([]*deduplication.Result, len(clusters))
	clusterWarnings := make([]string, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, c := range clusters {
		g.Go(func() error {
			result, err := p.dedup.Deduplicate(gctx, c)
			if err != nil {
				// A fail-closed engine error is still isolated to its
				// cluster: pass the cluster through undeduplicated.
				clusterWarnings[i] = fmt.Sprintf("cluster %s not deduplicated: %v", c.Seed().ID, err)
				results[i] = passthroughResult(c)
				return nil
			}
			if result.Warning != "" {
				clusterWarnings[i] = result.Warning
			}
			results[i] = result
			return nil
		})
	}
	// Workers only ever return nil; the group is for limit and ctx plumbing.
	_ = g.Wait()

	var warnings []Warning
	for _, w := range clusterWarnings {
		if w != "" {
			warnings = append(warnings, Warning{Stage: "deduplicate", Message: w})
		}
	}
	return results, warnings
}

// passthroughResult mirrors the engine's fail-open shape for clusters
// whose dedup call errored outright.
func passthroughResult(c *cluster.Cluster) *deduplication.Result {
	sources := make(map[string][]string, len(c.Members))
	for _, m := range c.Members {
		sources[m.ID] = []string{m.ID}
	}
	return &deduplication.Result{
		Cluster: c,
		Sources: sources,
		Stats: deduplication.Stats{
			MembersIn:  len(c.Members),
			MembersOut: len(c.Members),
		},
	}
}

func cancelled(report *Report) (*Report, error) {
	report.Requests = nil
	report.Stats.Emitted = 0
	return report, ErrCancelled
}
