package sqlite

// Schema contains all SQL statements for database initialization.
// Timestamps are stored as UTC unix nanoseconds.
const Schema = `
-- Fact history: append-only, one row per observation
CREATE TABLE IF NOT EXISTS facts (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL,
    fact_id TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
    source TEXT NOT NULL,
    cleared INTEGER NOT NULL DEFAULT 0,
    recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_facts_application ON facts(application_id, recorded_at);

-- Latest answer per (application, fact)
CREATE TABLE IF NOT EXISTS answers (
    application_id TEXT NOT NULL,
    fact_id TEXT NOT NULL,
    value TEXT NOT NULL DEFAULT '',
    answered_at INTEGER NOT NULL,
    PRIMARY KEY (application_id, fact_id)
);
`
