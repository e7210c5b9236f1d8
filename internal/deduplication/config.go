package deduplication

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the deduplication engine
type Config struct {
	// SimilarityThreshold is the minimum similarity score (0.0-1.0) to merge
	// two annotations. Higher values = more conservative (fewer false merges,
	// more redundant change requests). Default: 0.85
	SimilarityThreshold float64

	// MaxClusterSize is the largest cluster that gets deduplicated.
	// Pairwise comparison is quadratic in cluster size; anything larger
	// is returned unchanged. Default: 20
	MaxClusterSize int

	// FailOpen determines behavior when the similarity oracle fails.
	// If true: return the cluster unchanged (prefer redundant requests
	// over lost feedback). If false: surface the error to the caller.
	// Default: true
	FailOpen bool

	// PerCallTimeout bounds each individual oracle call.
	// Default: 10 seconds
	PerCallTimeout time.Duration
}

// DefaultConfig returns the default deduplication configuration
//
// These defaults are chosen to:
//   - Avoid merging distinct feedback (high similarity threshold)
//   - Keep oracle costs bounded (cluster size guard)
//   - Fail safely (redundant change requests beat dropped ones)
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		MaxClusterSize:      20,
		FailOpen:            true,
		PerCallTimeout:      10 * time.Second,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0.0 || c.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0 (got %.2f)",
			c.SimilarityThreshold)
	}
	if c.MaxClusterSize <= 0 {
		return fmt.Errorf("max_cluster_size must be positive (got %d)", c.MaxClusterSize)
	}
	if c.MaxClusterSize > 500 {
		return fmt.Errorf("max_cluster_size too large (got %d, max 500)", c.MaxClusterSize)
	}
	if c.PerCallTimeout <= 0 {
		return fmt.Errorf("per_call_timeout must be positive (got %v)", c.PerCallTimeout)
	}
	if c.PerCallTimeout > 5*time.Minute {
		return fmt.Errorf("per_call_timeout too large (got %v, max 5 minutes)", c.PerCallTimeout)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{Threshold: %.2f, MaxClusterSize: %d, FailOpen: %t, Timeout: %v}",
		c.SimilarityThreshold, c.MaxClusterSize, c.FailOpen, c.PerCallTimeout)
}

// ConfigFromEnv creates a Config from environment variables, falling
// back to defaults.
//
// Environment variables:
//   - REDLINE_DEDUP_SIMILARITY_THRESHOLD: Minimum similarity (0.0-1.0) to merge (default: 0.85)
//   - REDLINE_DEDUP_MAX_CLUSTER_SIZE: Largest cluster to deduplicate (default: 20)
//   - REDLINE_DEDUP_FAIL_OPEN: Return cluster unchanged on oracle failure (default: true)
//   - REDLINE_DEDUP_TIMEOUT_SECS: Per-oracle-call timeout in seconds (default: 10)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := parseEnvFloat("REDLINE_DEDUP_SIMILARITY_THRESHOLD", &cfg.SimilarityThreshold); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("REDLINE_DEDUP_MAX_CLUSTER_SIZE", &cfg.MaxClusterSize); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("REDLINE_DEDUP_FAIL_OPEN", &cfg.FailOpen); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("REDLINE_DEDUP_TIMEOUT_SECS", &cfg.PerCallTimeout, time.Second); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

func parseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}
