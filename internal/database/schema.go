package database

import "github.com/jmoiron/sqlx"

// Sessions own all other rows; deleting a session cascades.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	original_intent TEXT NOT NULL,
	final_intent    TEXT,
	status          TEXT NOT NULL DEFAULT 'created'
	                CHECK (status IN ('created', 'active', 'paused', 'ended')),
	started_at      TIMESTAMP,
	ended_at        TIMESTAMP,
	ended_by        TEXT CHECK (ended_by IN ('user', 'auto')),
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions (status);

CREATE TABLE IF NOT EXISTS session_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
	event_type TEXT NOT NULL CHECK (event_type IN ('paused', 'resumed')),
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events (session_id);

CREATE TABLE IF NOT EXISTS captures (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
	window_title TEXT NOT NULL,
	app_name     TEXT NOT NULL,
	captured_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_captures_session ON captures (session_id);

CREATE TABLE IF NOT EXISTS feelings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
	text       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feelings_session ON feelings (session_id);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
	status     TEXT NOT NULL CHECK (status IN ('generating', 'ready', 'failed')),
	content    TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_session ON reports (session_id);
`

func applySchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
