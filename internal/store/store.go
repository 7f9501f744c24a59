package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// sessionPragmas are applied to every history connection.
// busy_timeout lets a history listing wait out a concurrent SaveRun.
var sessionPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// migrations upgrade a history database one user_version at a time.
// migrations[i] moves a database from version i to i+1.
var migrations = []string{
	// v1: newest-first listing for "probecheck history".
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC, id DESC)`,
}

// currentSchemaVersion is the user_version of a fully migrated history.
var currentSchemaVersion = len(migrations)

// Store is the SQLite-backed run history written by "probecheck run --history".
type Store struct {
	db *sql.DB
}

// Open opens the history database at path, creating it if needed, and
// brings its schema up to date. Opening an existing history is safe.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}

	// One connection: SQLite serializes writers, and the pragmas are
	// per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range sessionPragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure history: %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create history tables: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read history version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("history version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		if _, err := db.Exec(migrations[v]); err != nil {
			return fmt.Errorf("failed to migrate history to v%d: %w", v+1, err)
		}
	}

	// PRAGMA does not take bind parameters.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("failed to set history version: %w", err)
	}
	return nil
}
