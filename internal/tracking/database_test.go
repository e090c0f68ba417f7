package tracking

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(MemoryPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "plays.db")

	db, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestDatabaseSchemaExists(t *testing.T) {
	db := setupTestDB(t)

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM play_events").Scan(&count); err != nil {
		t.Fatalf("play_events is not queryable: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected empty table, got %d rows", count)
	}

	for _, indexName := range []string{
		"idx_plays_timestamp",
		"idx_plays_name",
		"idx_plays_session",
		"idx_plays_failed",
	} {
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", indexName).Scan(&count)
		if err != nil || count != 1 {
			t.Errorf("Index %s missing (count=%d, err=%v)", indexName, count, err)
		}
	}
}

func TestDatabaseKindConstraint(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec(`INSERT INTO play_events (timestamp, session_id, kind, name, volume, outcome)
		VALUES (1, 's', 'voice', 'hello', 1.0, 'played')`)
	if err == nil {
		t.Error("Expected CHECK constraint to reject unknown kind")
	}
}

func TestNewDatabaseIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plays.db")

	first, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := first.Exec(`INSERT INTO play_events (timestamp, session_id, kind, name, volume, outcome)
		VALUES (1, 's', 'sound', 'click', 1.0, 'played')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	first.Close()

	second, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	var count int
	if err := second.QueryRow("SELECT COUNT(*) FROM play_events").Scan(&count); err != nil || count != 1 {
		t.Errorf("Expected existing row to survive reopen, got %d (%v)", count, err)
	}
}
