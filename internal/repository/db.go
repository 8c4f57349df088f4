package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDB opens (creating if necessary) the sqlite database at path with the
// pragmas the application relies on: WAL for concurrent readers, foreign keys
// on, and a busy timeout so the single-writer assumption degrades to waiting
// instead of failing.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// sqlite serializes writes; a single connection avoids SQLITE_BUSY churn
	// between the HTTP handlers and the sync routines.
	db.SetMaxOpenConns(1)

	return db, nil
}
