package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Open opens (creating if needed) the SQLite history database at path,
// enables WAL and runs migrations. The returned handle is meant to be
// opened once at startup and shared by every store.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := verifyWALMode(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(ctx context.Context, db *sql.DB) error {
	version, err := GetUserVersion(ctx, db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: transcription log and settings singleton.
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS transcriptions (
		  id          INTEGER PRIMARY KEY AUTOINCREMENT,
		  timestamp   TEXT NOT NULL,
		  audio_path  TEXT NOT NULL,
		  text        TEXT NOT NULL,
		  duration    REAL NOT NULL,
		  word_count  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transcriptions_timestamp
		ON transcriptions(timestamp DESC);

		CREATE TABLE IF NOT EXISTS settings (
		  id                      INTEGER PRIMARY KEY CHECK (id = 1),
		  record_key              TEXT NOT NULL,
		  openai_api_key          TEXT,
		  transcription_model     TEXT NOT NULL,
		  transcription_language  TEXT,
		  llm_model               TEXT NOT NULL,
		  start_sound             TEXT NOT NULL,
		  end_sound               TEXT NOT NULL
		);
		`
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(ctx, db, 1); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(ctx context.Context, db *sql.DB) error {
	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(ctx context.Context, db *sql.DB, version int) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
