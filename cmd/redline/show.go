package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored change request in full",
	Long:  `Display one change request with its provenance, fingerprint matches, and audit trail.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := openStore(ctx); err != nil {
			return err
		}
		defer closeStore()

		req, err := store.GetRequest(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get request: %w", err)
		}
		if req == nil {
			return fmt.Errorf("request %s not found", args[0])
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s %s\n\n", cyan("Request"), req.ID)
		fmt.Printf("  Kind:        %s\n", req.Kind)
		fmt.Printf("  Priority:    %s\n", priorityLabel(req.Priority))
		fmt.Printf("  Status:      %s\n", req.Status)
		fmt.Printf("  Confidence:  %.2f\n", req.Confidence)
		if req.OriginalExcerpt != "" {
			fmt.Printf("  Excerpt:     %q\n", req.OriginalExcerpt)
		}
		fmt.Printf("  Suggested:   %s\n", req.SuggestedChange)
		fmt.Printf("  Sources:     %v\n", req.SourceAnnotationIDs)
		fmt.Printf("  Fingerprint: %s\n", req.ContentFingerprint)

		if len(req.Reasoning) > 0 {
			fmt.Println()
			fmt.Println("  Reasoning:")
			for _, line := range req.Reasoning {
				fmt.Printf("    %s %s\n", gray("·"), line)
			}
		}

		dupes, err := store.FindByFingerprint(ctx, req.ContentFingerprint)
		if err == nil && len(dupes) > 1 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Println()
			fmt.Printf("  %s Seen %d times across runs\n", yellow("⚠"), len(dupes))
		}

		events, err := store.GetEvents(ctx, req.ID, 10)
		if err == nil && len(events) > 0 {
			fmt.Println()
			fmt.Println("  History:")
			for _, e := range events {
				fmt.Printf("    %s %s by %s at %s\n",
					gray("·"), e.EventType, e.Actor, e.CreatedAt.Format("2006-01-02 15:04"))
			}
		}
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
