package store

// Schema is the run-archive schema. One row per strategy run, with its
// records and raw request events attached by run id.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    method          TEXT NOT NULL,
    started_at      INTEGER NOT NULL,
    total_time_s    REAL NOT NULL,
    total_requests  INTEGER NOT NULL,
    total_bytes     INTEGER NOT NULL,
    avg_latency_ms  REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_method ON runs(method, started_at DESC);

CREATE TABLE IF NOT EXISTS records (
    run_id             INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position           INTEGER NOT NULL,
    post_id            INTEGER NOT NULL,
    title              TEXT NOT NULL DEFAULT '',
    url                TEXT NOT NULL DEFAULT '',
    points             INTEGER NOT NULL DEFAULT 0,
    comments_count     INTEGER NOT NULL DEFAULT 0,
    author             TEXT NOT NULL DEFAULT '',
    top_comment_author TEXT NOT NULL DEFAULT '',
    top_comment_text   TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS events (
    run_id      INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    method      TEXT NOT NULL DEFAULT '',
    status_code INTEGER NOT NULL DEFAULT 0,
    elapsed_ms  REAL NOT NULL DEFAULT 0,
    bytes_read  INTEGER NOT NULL DEFAULT 0,
    timestamp   INTEGER NOT NULL,
    PRIMARY KEY (run_id, position)
);
`
