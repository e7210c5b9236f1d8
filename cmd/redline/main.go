// Command redline canonicalizes document feedback: it reads raw
// annotation exports, clusters and deduplicates them, and emits a
// prioritized list of change requests ready for triage.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/redlinehq/redline/internal/config"
	"github.com/redlinehq/redline/internal/storage"
)

var (
	// Global flags
	configPath string
	dbPath     string
	actor      string

	// Effective configuration, resolved in PersistentPreRunE
	cfg config.Config

	// Store is opened lazily; commands that touch the database call
	// openStore and defer closeStore.
	store storage.Storage
)

// Version is stamped at build time via -ldflags
var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:     "redline",
	Version: Version,
	Short:   "Canonicalize document feedback into change requests",
	Long: `Redline turns raw document annotations (inline comment threads,
sticky notes, marked-up exports) into a deduplicated, prioritized
list of concrete change requests.

Feed it an annotation export and it will cluster nearby feedback,
merge near-duplicates, classify and score what remains, and print
or store the canonical change requests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		return nil
	},
}

func openStore(ctx context.Context) error {
	s, err := storage.NewStorage(ctx, &storage.Config{Path: cfg.DatabasePath})
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}
	store = s
	return nil
}

func closeStore() {
	if store != nil {
		store.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", "user", "Actor name recorded on the audit trail")
}

func main() {
	// Load .env if present; environment wins over file values.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
