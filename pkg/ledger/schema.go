package ledger

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Times are stored as Unix milliseconds so both drivers scan them alike.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    bug_id INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    restored_at INTEGER,
    root TEXT NOT NULL,
    window_ms INTEGER NOT NULL,
    deadline INTEGER NOT NULL,
    files_seen INTEGER NOT NULL DEFAULT 0,
    files_trimmed INTEGER NOT NULL DEFAULT 0,
    file_errors INTEGER NOT NULL DEFAULT 0,
    bytes_discarded INTEGER NOT NULL DEFAULT 0,
    archive_path TEXT,
    archive_size INTEGER NOT NULL DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS files (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    kind TEXT NOT NULL,
    trim_start INTEGER NOT NULL,
    original_size INTEGER NOT NULL,
    new_size INTEGER NOT NULL,
    backup_path TEXT,
    PRIMARY KEY (run_id, path)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

const insertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

const getSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
