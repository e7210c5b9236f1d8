package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive triage shell",
	Long: `Start an interactive shell for triaging stored change requests.

The shell supports listing, inspecting, accepting, and rejecting
requests. Type 'help' in the shell for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if err := openStore(ctx); err != nil {
			return err
		}
		defer closeStore()

		r, err := repl.New(&repl.Config{
			Store: store,
			Actor: actor,
		})
		if err != nil {
			return err
		}

		return r.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
