package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, OracleLexical, cfg.Oracle)
	assert.InDelta(t, 0.7, cfg.ConfidenceFloor, 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown oracle",
			modify:  func(c *Config) { c.Oracle = "oujia" },
			wantErr: "oracle must be one of",
		},
		{
			name:    "confidence floor zero",
			modify:  func(c *Config) { c.ConfidenceFloor = 0 },
			wantErr: "confidence_floor",
		},
		{
			name:    "confidence floor above one",
			modify:  func(c *Config) { c.ConfidenceFloor = 1.5 },
			wantErr: "confidence_floor",
		},
		{
			name:    "negative cluster threshold",
			modify:  func(c *Config) { c.ClusterThreshold = -1 },
			wantErr: "cluster_threshold",
		},
		{
			name:    "parallelism out of range",
			modify:  func(c *Config) { c.MaxParallelClusters = 0 },
			wantErr: "max_parallel_clusters",
		},
		{
			name:    "empty database path",
			modify:  func(c *Config) { c.DatabasePath = "" },
			wantErr: "database_path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"oracle: anthropic\nconfidence_floor: 0.6\nmax_parallel_clusters: 8\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, OracleAnthropic, cfg.Oracle)
	assert.InDelta(t, 0.6, cfg.ConfidenceFloor, 1e-9)
	assert.Equal(t, 8, cfg.MaxParallelClusters)
	// Untouched fields keep their defaults.
	assert.Equal(t, ".redline/redline.db", cfg.DatabasePath)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: gemini\n"), 0644))

	t.Setenv("REDLINE_ORACLE", "lexical")
	t.Setenv("REDLINE_CONFIDENCE_FLOOR", "0.9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, OracleLexical, cfg.Oracle)
	assert.InDelta(t, 0.9, cfg.ConfidenceFloor, 1e-9)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("REDLINE_CONFIDENCE_FLOOR", "not-a-number")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDLINE_CONFIDENCE_FLOOR")
}

func TestFromEnvValidates(t *testing.T) {
	t.Setenv("REDLINE_ORACLE", "psychic")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle must be one of")
}
