package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize stored change requests",
	Long:  `Display counts of stored change requests by status and priority.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := openStore(ctx); err != nil {
			return err
		}
		defer closeStore()

		stats, err := store.GetStatistics(ctx)
		if err != nil {
			return fmt.Errorf("failed to get statistics: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Redline Status ==="))
		fmt.Printf("  Total requests: %d\n", stats.Total)

		if stats.Total == 0 {
			fmt.Printf("  %s\n\n", gray("Run 'redline canonicalize --save' to store requests"))
			return nil
		}

		fmt.Println()
		fmt.Println("  By status:")
		for _, s := range []types.RequestStatus{types.StatusPending, types.StatusAccepted, types.StatusRejected, types.StatusApplied} {
			if n := stats.ByStatus[string(s)]; n > 0 {
				fmt.Printf("    %-10s %d\n", s, n)
			}
		}

		fmt.Println()
		fmt.Println("  By priority:")
		for _, p := range []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow} {
			if n := stats.ByPriority[string(p)]; n > 0 {
				fmt.Printf("    %-10s %d\n", priorityLabel(p), n)
			}
		}
		fmt.Println()

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
