// Package config loads the run configuration for the canonicalization
// pipeline: which similarity oracle to use, the thresholds that shape a
// run, and where results are stored.
//
// Configuration is layered. Defaults come first, then an optional YAML
// file, then environment variables. Every layer is validated as a
// whole, so a bad file or a bad variable fails loudly at startup
// instead of producing a silently misconfigured run.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Oracle backend names accepted by Config.Oracle.
const (
	OracleLexical   = "lexical"
	OracleAnthropic = "anthropic"
	OracleGemini    = "gemini"
)

// Config holds the settings for one canonicalization run
type Config struct {
	// Oracle selects the similarity backend used for deduplication.
	// Options: "lexical" (offline token overlap), "anthropic" (AI
	// judge), "gemini" (embedding cosine similarity).
	// Default: "lexical"
	Oracle string `yaml:"oracle"`

	// ConfidenceFloor is the minimum confidence for an emitted change
	// request. Requests scoring below it are dropped.
	// Default: 0.7, Range: (0.0, 1.0]
	ConfidenceFloor float64 `yaml:"confidence_floor"`

	// ClusterThreshold overrides the automatic location-type-based
	// clustering distance when > 0. Zero means pick automatically
	// (50 for text offsets, 100 for canvas pixels).
	// Default: 0
	ClusterThreshold float64 `yaml:"cluster_threshold"`

	// MaxParallelClusters bounds how many clusters are deduplicated
	// concurrently. Default: 4, Range: 1-64
	MaxParallelClusters int `yaml:"max_parallel_clusters"`

	// IncludeResolved keeps annotations whose threads were already
	// resolved upstream. Default: false
	IncludeResolved bool `yaml:"include_resolved"`

	// DatabasePath is where canonicalized change requests are stored.
	// Default: ".redline/redline.db"
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default run configuration.
//
// The lexical oracle is the default because it needs no credentials
// and no network; AI backends are opt-in.
func DefaultConfig() Config {
	return Config{
		Oracle:              OracleLexical,
		ConfidenceFloor:     0.7,
		ClusterThreshold:    0,
		MaxParallelClusters: 4,
		IncludeResolved:     false,
		DatabasePath:        ".redline/redline.db",
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	switch c.Oracle {
	case OracleLexical, OracleAnthropic, OracleGemini:
	default:
		return fmt.Errorf("oracle must be one of lexical, anthropic, gemini (got %q)", c.Oracle)
	}

	if c.ConfidenceFloor <= 0.0 || c.ConfidenceFloor > 1.0 {
		return fmt.Errorf("confidence_floor must be in (0.0, 1.0] (got %.2f)", c.ConfidenceFloor)
	}

	if c.ClusterThreshold < 0 {
		return fmt.Errorf("cluster_threshold cannot be negative (got %.2f)", c.ClusterThreshold)
	}

	if c.MaxParallelClusters < 1 || c.MaxParallelClusters > 64 {
		return fmt.Errorf("max_parallel_clusters must be between 1 and 64 (got %d)", c.MaxParallelClusters)
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}

	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Oracle: %s, ConfidenceFloor: %.2f, ClusterThreshold: %.1f, "+
			"MaxParallelClusters: %d, IncludeResolved: %t, DatabasePath: %s}",
		c.Oracle, c.ConfidenceFloor, c.ClusterThreshold,
		c.MaxParallelClusters, c.IncludeResolved, c.DatabasePath,
	)
}

// Load builds the effective configuration: defaults, overlaid by the
// YAML file at path (if path is non-empty), overlaid by environment
// variables. The result is validated before it is returned.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// FromEnv creates a Config from environment variables alone, falling
// back to defaults.
//
// Environment variables:
//   - REDLINE_ORACLE: Similarity backend (default: lexical)
//   - REDLINE_CONFIDENCE_FLOOR: Minimum emitted confidence (default: 0.7)
//   - REDLINE_CLUSTER_THRESHOLD: Clustering distance override (default: auto)
//   - REDLINE_MAX_PARALLEL_CLUSTERS: Concurrent cluster dedup bound (default: 4)
//   - REDLINE_INCLUDE_RESOLVED: Keep resolved annotations (default: false)
//   - REDLINE_DB_PATH: Change request database path (default: .redline/redline.db)
//
// Returns an error if any environment variable has an invalid value.
func FromEnv() (Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) error {
	if err := parseEnvString("REDLINE_ORACLE", &cfg.Oracle); err != nil {
		return err
	}
	if err := parseEnvFloat("REDLINE_CONFIDENCE_FLOOR", &cfg.ConfidenceFloor); err != nil {
		return err
	}
	if err := parseEnvFloat("REDLINE_CLUSTER_THRESHOLD", &cfg.ClusterThreshold); err != nil {
		return err
	}
	if err := parseEnvInt("REDLINE_MAX_PARALLEL_CLUSTERS", &cfg.MaxParallelClusters); err != nil {
		return err
	}
	if err := parseEnvBool("REDLINE_INCLUDE_RESOLVED", &cfg.IncludeResolved); err != nil {
		return err
	}
	if err := parseEnvString("REDLINE_DB_PATH", &cfg.DatabasePath); err != nil {
		return err
	}
	return nil
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
