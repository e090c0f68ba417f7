// Package tracking keeps a SQLite journal of play requests and answers
// usage queries over it.
package tracking

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory journal
const MemoryPath = ":memory:"

// NewDatabase opens the SQLite journal at dbPath and applies the schema
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// every pooled connection to :memory: would get its own empty database
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA user_version = 1",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS play_events (
    id         INTEGER PRIMARY KEY,
    timestamp  INTEGER NOT NULL,
    session_id TEXT    NOT NULL,
    kind       TEXT    NOT NULL CHECK (kind IN ('sound', 'music')),
    name       TEXT    NOT NULL,
    path       TEXT,
    volume     REAL    NOT NULL,
    outcome    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plays_timestamp ON play_events(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_plays_name ON play_events(name);
CREATE INDEX IF NOT EXISTS idx_plays_session ON play_events(session_id);
CREATE INDEX IF NOT EXISTS idx_plays_failed ON play_events(name) WHERE outcome <> 'played';
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
