package sqlite

const schema = `
-- Change requests table: canonical pipeline output
CREATE TABLE IF NOT EXISTS change_requests (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    priority TEXT NOT NULL,
    priority_rank INTEGER NOT NULL DEFAULT 3 CHECK(priority_rank >= 0 AND priority_rank <= 3),
    location TEXT NOT NULL,
    original_excerpt TEXT NOT NULL DEFAULT '',
    suggested_change TEXT NOT NULL DEFAULT '',
    reasoning TEXT NOT NULL DEFAULT '[]',
    source_annotation_ids TEXT NOT NULL DEFAULT '[]',
    status TEXT NOT NULL DEFAULT 'pending',
    cluster_key TEXT NOT NULL DEFAULT '',
    content_fingerprint TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL DEFAULT 0 CHECK(confidence >= 0.0 AND confidence <= 1.0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_requests_status ON change_requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_priority_rank ON change_requests(priority_rank);
CREATE INDEX IF NOT EXISTS idx_requests_fingerprint ON change_requests(content_fingerprint);
CREATE INDEX IF NOT EXISTS idx_requests_created_at ON change_requests(created_at);

-- Events table (audit trail)
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL,
    old_value TEXT,
    new_value TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (request_id) REFERENCES change_requests(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_events_request ON events(request_id);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);

-- Config table (key-value settings)
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
