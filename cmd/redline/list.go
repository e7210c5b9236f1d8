package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/types"
)

var (
	listStatus string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored change requests",
	Long:  `List stored change requests, highest priority first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := openStore(ctx); err != nil {
			return err
		}
		defer closeStore()

		filter := types.RequestFilter{Limit: listLimit}
		if listStatus != "" {
			status := types.RequestStatus(listStatus)
			if !status.IsValid() {
				return fmt.Errorf("invalid status %q", listStatus)
			}
			filter.Status = &status
		}

		requests, err := store.ListRequests(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}

		if len(requests) == 0 {
			fmt.Println("No change requests found.")
			return nil
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		for i, req := range requests {
			fmt.Printf("%2d. [%s] %s %s %s\n",
				i+1,
				priorityLabel(req.Priority),
				gray(shortID(req.ID)),
				req.SuggestedChange,
				gray(fmt.Sprintf("(%s, %s)", req.Kind, req.Status)),
			)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, accepted, rejected, applied)")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Maximum requests to show")
	rootCmd.AddCommand(listCmd)
}
