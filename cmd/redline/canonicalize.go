package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/ai"
	"github.com/redlinehq/redline/internal/config"
	"github.com/redlinehq/redline/internal/deduplication"
	"github.com/redlinehq/redline/internal/pipeline"
	"github.com/redlinehq/redline/internal/similarity"
	"github.com/redlinehq/redline/internal/source"
	"github.com/redlinehq/redline/internal/types"
)

var (
	canonicalizeDocument string
	canonicalizeOracle   string
	canonicalizeSave     bool
	canonicalizeJSON     bool
)

var canonicalizeCmd = &cobra.Command{
	Use:   "canonicalize <annotations.json>",
	Short: "Turn an annotation export into prioritized change requests",
	Long: `Run the full canonicalization pipeline over an annotation export.

The export is a JSON file holding an array of annotations, either bare
or wrapped in {"document_id": ..., "annotations": [...]}. Pass "-" to
read from stdin.

Nearby annotations are clustered, near-duplicate threads are merged
using the configured similarity oracle, and the survivors are
classified, scored, and emitted highest priority first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		oracle, err := buildOracle(ctx)
		if err != nil {
			return err
		}

		dedupCfg, err := deduplication.ConfigFromEnv()
		if err != nil {
			return err
		}
		engine, err := deduplication.NewEngine(oracle, dedupCfg)
		if err != nil {
			return err
		}
		p, err := pipeline.New(engine)
		if err != nil {
			return err
		}

		var src source.Source
		if args[0] == "-" {
			src = &source.ReaderSource{Reader: os.Stdin}
		} else {
			src = &source.FileSource{Path: args[0]}
		}

		annotations, fetchWarning := source.FetchSoft(ctx, src, canonicalizeDocument)
		if fetchWarning != "" {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Fprintf(os.Stderr, "%s %s\n", yellow("Warning:"), fetchWarning)
		}

		report, err := p.Run(ctx, annotations, pipeline.Options{
			IncludeResolved:     cfg.IncludeResolved,
			ConfidenceFloor:     cfg.ConfidenceFloor,
			ClusterThreshold:    cfg.ClusterThreshold,
			MaxParallelClusters: cfg.MaxParallelClusters,
		})
		if err != nil {
			return err
		}

		if canonicalizeJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Println(string(out))
		} else {
			printReport(report)
		}

		if canonicalizeSave && len(report.Requests) > 0 {
			if err := openStore(ctx); err != nil {
				return err
			}
			defer closeStore()

			if err := store.SaveRequests(ctx, report.Requests, actor); err != nil {
				return fmt.Errorf("failed to save requests: %w", err)
			}
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("%s Saved %d request(s) to %s\n", green("✓"), len(report.Requests), cfg.DatabasePath)

			reportCrossRunDuplicates(ctx, report.Requests)
		}

		return nil
	},
}

// buildOracle constructs the similarity backend named by the config,
// or by --oracle when given.
func buildOracle(ctx context.Context) (similarity.Oracle, error) {
	name := cfg.Oracle
	if canonicalizeOracle != "" {
		name = canonicalizeOracle
	}

	switch name {
	case config.OracleLexical:
		return similarity.Lexical{}, nil
	case config.OracleAnthropic:
		return ai.NewJudge(&ai.Config{})
	case config.OracleGemini:
		return similarity.NewEmbeddingOracle(ctx, os.Getenv("GEMINI_API_KEY"), "")
	default:
		return nil, fmt.Errorf("unknown oracle %q", name)
	}
}

// printReport renders a human-readable run summary
func printReport(report *pipeline.Report) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	for _, w := range report.Warnings {
		fmt.Fprintf(os.Stderr, "%s [%s] %s\n", yellow("Warning:"), w.Stage, w.Message)
	}

	if len(report.Requests) == 0 {
		fmt.Println("No actionable change requests.")
		return
	}

	fmt.Printf("\n%s\n\n", cyan("Change Requests"))
	for i, req := range report.Requests {
		fmt.Printf("%2d. [%s] %s\n", i+1, priorityLabel(req.Priority), req.SuggestedChange)
		fmt.Printf("    %s %s, confidence %.2f, from %d annotation(s)\n",
			gray("·"), req.Kind, req.Confidence, len(req.SourceAnnotationIDs))
		if req.OriginalExcerpt != "" {
			fmt.Printf("    %s excerpt: %q\n", gray("·"), req.OriginalExcerpt)
		}
	}

	fmt.Printf("\n%s %d in, %d clusters, %d merged, %d emitted\n",
		gray("Stats:"), report.Stats.Input, report.Stats.Clusters,
		report.Stats.Merged, report.Stats.Emitted)
}

// reportCrossRunDuplicates warns when a saved request's fingerprint was
// already produced by an earlier run.
func reportCrossRunDuplicates(ctx context.Context, requests []*types.ChangeRequest) {
	yellow := color.New(color.FgYellow).SprintFunc()
	for _, req := range requests {
		matches, err := store.FindByFingerprint(ctx, req.ContentFingerprint)
		if err != nil || len(matches) <= 1 {
			continue
		}
		fmt.Printf("%s %s matches %d earlier request(s) with the same suggestion\n",
			yellow("⚠"), shortID(req.ID), len(matches)-1)
	}
}

// shortID trims a UUID to its first group for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func priorityLabel(p types.Priority) string {
	switch p {
	case types.PriorityHigh:
		return color.New(color.FgRed, color.Bold).Sprint("high")
	case types.PriorityMedium:
		return color.New(color.FgYellow).Sprint("medium")
	default:
		return color.New(color.FgGreen).Sprint("low")
	}
}

func init() {
	canonicalizeCmd.Flags().StringVar(&canonicalizeDocument, "document", "", "Expected document ID (errors on mismatch)")
	canonicalizeCmd.Flags().StringVar(&canonicalizeOracle, "oracle", "", "Similarity oracle: lexical, anthropic, or gemini")
	canonicalizeCmd.Flags().BoolVar(&canonicalizeSave, "save", false, "Save emitted requests to the database")
	canonicalizeCmd.Flags().BoolVar(&canonicalizeJSON, "json", false, "Print the full report as JSON")
	rootCmd.AddCommand(canonicalizeCmd)
}
