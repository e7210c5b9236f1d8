// Package sqlite persists canonicalized change requests so triage can
// happen across runs: accept or reject a request once and later runs
// of the same document can see the decision, and fingerprints reveal
// when a new run re-surfaces feedback that was already handled.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/redlinehq/redline/internal/types"
)

// Event lifecycle markers recorded on the audit trail.
const (
	EventCreated       = "created"
	EventStatusChanged = "status_changed"
)

// Event is one audit trail entry for a change request
type Event struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	EventType string    `json:"event_type"`
	Actor     string    `json:"actor"`
	OldValue  string    `json:"old_value,omitempty"`
	NewValue  string    `json:"new_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Statistics summarizes the stored change requests
type Statistics struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
}

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage backend
func New(path string) (*SQLiteStorage, error) {
	// Ensure directory exists (":memory:" has none)
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// SaveRequests stores a batch of change requests in one transaction.
// Each request is validated first; a single bad request fails the
// whole batch and nothing is written.
func (s *SQLiteStorage) SaveRequests(ctx context.Context, requests []*types.ChangeRequest, actor string) error {
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("validation failed for request %s: %w", r.ID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, r := range requests {
		location, err := json.Marshal(r.Location)
		if err != nil {
			return fmt.Errorf("failed to encode location for %s: %w", r.ID, err)
		}
		reasoning, err := json.Marshal(r.Reasoning)
		if err != nil {
			return fmt.Errorf("failed to encode reasoning for %s: %w", r.ID, err)
		}
		sources, err := json.Marshal(r.SourceAnnotationIDs)
		if err != nil {
			return fmt.Errorf("failed to encode sources for %s: %w", r.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO change_requests (
				id, kind, priority, priority_rank, location, original_excerpt,
				suggested_change, reasoning, source_annotation_ids, status,
				cluster_key, content_fingerprint, confidence, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, r.Kind, r.Priority, r.Priority.Rank(), string(location),
			r.OriginalExcerpt, r.SuggestedChange, string(reasoning),
			string(sources), r.Status, r.ClusterKey, r.ContentFingerprint,
			r.Confidence, r.CreatedAt, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert request %s: %w", r.ID, err)
		}

		requestData, _ := json.Marshal(r)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (request_id, event_type, actor, new_value)
			VALUES (?, ?, ?, ?)
		`, r.ID, EventCreated, actor, string(requestData))
		if err != nil {
			return fmt.Errorf("failed to record event for %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetRequest retrieves a change request by ID. Returns nil, nil when
// no request with that ID exists.
func (s *SQLiteStorage) GetRequest(ctx context.Context, id string) (*types.ChangeRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, priority, location, original_excerpt,
		       suggested_change, reasoning, source_annotation_ids, status,
		       cluster_key, content_fingerprint, confidence, created_at
		FROM change_requests
		WHERE id = ?
	`, id)

	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListRequests returns change requests matching the filter, highest
// priority first, newest first within a priority tier.
func (s *SQLiteStorage) ListRequests(ctx context.Context, filter types.RequestFilter) ([]*types.ChangeRequest, error) {
	whereClauses := []string{}
	args := []interface{}{}

	if filter.Status != nil {
		whereClauses = append(whereClauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Priority != nil {
		whereClauses = append(whereClauses, "priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.Kind != nil {
		whereClauses = append(whereClauses, "kind = ?")
		args = append(args, *filter.Kind)
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	limitSQL := ""
	if filter.Limit > 0 {
		limitSQL = fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	querySQL := fmt.Sprintf(`
		SELECT id, kind, priority, location, original_excerpt,
		       suggested_change, reasoning, source_annotation_ids, status,
		       cluster_key, content_fingerprint, confidence, created_at
		FROM change_requests
		%s
		ORDER BY priority_rank ASC, created_at DESC
		%s
	`, whereSQL, limitSQL)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*types.ChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdateStatus transitions a change request to a new status and records
// the transition on the audit trail.
func (s *SQLiteStorage) UpdateStatus(ctx context.Context, id string, status types.RequestStatus, actor string) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	existing, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("request %s not found", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE change_requests SET status = ?, updated_at = ?
		WHERE id = ?
	`, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (request_id, event_type, actor, old_value, new_value)
		VALUES (?, ?, ?, ?, ?)
	`, id, EventStatusChanged, actor, string(existing.Status), string(status))
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	return tx.Commit()
}

// FindByFingerprint returns all stored requests whose content
// fingerprint matches, newest first. An empty fingerprint matches
// nothing.
func (s *SQLiteStorage) FindByFingerprint(ctx context.Context, fingerprint string) ([]*types.ChangeRequest, error) {
	if fingerprint == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, priority, location, original_excerpt,
		       suggested_change, reasoning, source_annotation_ids, status,
		       cluster_key, content_fingerprint, confidence, created_at
		FROM change_requests
		WHERE content_fingerprint = ?
		ORDER BY created_at DESC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query by fingerprint: %w", err)
	}
	defer rows.Close()

	var requests []*types.ChangeRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// GetEvents returns the audit trail for a request, newest first
func (s *SQLiteStorage) GetEvents(ctx context.Context, requestID string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, event_type, actor, old_value, new_value, created_at
		FROM events
		WHERE request_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, requestID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		var oldValue, newValue sql.NullString
		if err := rows.Scan(&e.ID, &e.RequestID, &e.EventType, &e.Actor,
			&oldValue, &newValue, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.OldValue = oldValue.String
		e.NewValue = newValue.String
		events = append(events, &e)
	}
	return events, rows.Err()
}

// GetStatistics summarizes stored requests by status and priority
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, priority, COUNT(*)
		FROM change_requests
		GROUP BY status, priority
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, priority string
		var count int
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
	}
	return stats, rows.Err()
}

// GetConfig gets a configuration value from the config table
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig sets a configuration value in the config table
func (s *SQLiteStorage) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row scanner) (*types.ChangeRequest, error) {
	var req types.ChangeRequest
	var location, reasoning, sources string

	err := row.Scan(
		&req.ID, &req.Kind, &req.Priority, &location, &req.OriginalExcerpt,
		&req.SuggestedChange, &reasoning, &sources, &req.Status,
		&req.ClusterKey, &req.ContentFingerprint, &req.Confidence, &req.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(location), &req.Location); err != nil {
		return nil, fmt.Errorf("failed to decode location for %s: %w", req.ID, err)
	}
	if err := json.Unmarshal([]byte(reasoning), &req.Reasoning); err != nil {
		return nil, fmt.Errorf("failed to decode reasoning for %s: %w", req.ID, err)
	}
	if err := json.Unmarshal([]byte(sources), &req.SourceAnnotationIDs); err != nil {
		return nil, fmt.Errorf("failed to decode sources for %s: %w", req.ID, err)
	}
	return &req, nil
}
