package storage

import (
	"context"

	"github.com/redlinehq/redline/internal/storage/sqlite"
	"github.com/redlinehq/redline/internal/types"
)

// Storage defines the interface for change request storage backends
type Storage interface {
	// Change Requests
	SaveRequests(ctx context.Context, requests []*types.ChangeRequest, actor string) error
	GetRequest(ctx context.Context, id string) (*types.ChangeRequest, error)
	ListRequests(ctx context.Context, filter types.RequestFilter) ([]*types.ChangeRequest, error)
	UpdateStatus(ctx context.Context, id string, status types.RequestStatus, actor string) error

	// Cross-run duplicate detection: requests from earlier runs whose
	// normalized suggestion hashes to the same fingerprint.
	FindByFingerprint(ctx context.Context, fingerprint string) ([]*types.ChangeRequest, error)

	// Audit trail
	GetEvents(ctx context.Context, requestID string, limit int) ([]*sqlite.Event, error)

	// Statistics
	GetStatistics(ctx context.Context) (*sqlite.Statistics, error)

	// Config
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".redline/redline.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".redline/redline.db",
	}
}

// NewStorage creates a new SQLite storage backend
// The ctx parameter is currently unused but kept for API consistency
// and future extension possibilities
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if cfg.Path == "" {
		cfg.Path = ".redline/redline.db"
	}

	return sqlite.New(cfg.Path)
}
