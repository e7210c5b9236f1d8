// Package deduplication merges near-duplicate annotations within a
// spatial cluster so the pipeline emits one change request per piece
// of feedback instead of one per reviewer who said it.
//
// # Overview
//
// Reviewers independently flag the same problem in slightly different
// words. After clustering groups their annotations spatially, this
// package compares each cluster member's concatenated comment text
// against every later member via an injected similarity oracle. Later
// members scoring at or above the threshold are absorbed into the
// earlier one: their comments are appended in chronological
// concatenation order and their IDs recorded as sources on the
// survivor.
//
// # Fail-open policy
//
// The similarity oracle is the only external dependency in the whole
// pipeline, so its failure mode is contained here: if any oracle call
// for a cluster fails, the cluster is returned unmodified and the
// failure is surfaced as a non-fatal warning on the result. A degraded
// oracle means redundant change requests, never lost feedback.
//
// # Configuration
//
// Defaults are conservative to avoid merging distinct feedback:
//   - SimilarityThreshold: 0.85 (high similarity required to merge)
//   - MaxClusterSize: 20 (larger clusters skip deduplication entirely)
//   - FailOpen: true (return the cluster unchanged on oracle failure)
//
// See DefaultConfig() for full default values and REDLINE_DEDUP_* env
// overrides.
package deduplication
