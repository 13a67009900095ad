package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for narrow's run history.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  last_pruned     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  file_hash       TEXT NOT NULL,
  config_hash     TEXT NOT NULL,
  output          TEXT NOT NULL,
  diag_count      INTEGER DEFAULT 0,
  created_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  kind            TEXT NOT NULL,
  name            TEXT,
  file            TEXT,
  line            INTEGER,
  col             INTEGER,
  decl            TEXT,
  member          TEXT,
  site            TEXT,
  message         TEXT
);

CREATE TABLE IF NOT EXISTS surface (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  signature_hash  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);
CREATE INDEX IF NOT EXISTS idx_surface_run ON surface(run_id);
`

// DeleteFileData transactionally removes a file and all of its runs.
// Deletes in reverse-dependency order to respect FK constraints.
func (s *Store) DeleteFileData(fileID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	runIDs, err := queryIDs(tx, "SELECT id FROM runs WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	if err := deleteRunsTx(tx, runIDs); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}

// TrimRuns keeps only the newest keep runs of a file.
func (s *Store) TrimRuns(fileID int64, keep int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	runIDs, err := queryIDs(tx,
		"SELECT id FROM runs WHERE file_id = ? ORDER BY id DESC LIMIT -1 OFFSET ?", fileID, keep)
	if err != nil {
		return fmt.Errorf("query old runs: %w", err)
	}
	if err := deleteRunsTx(tx, runIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteRunsTx(tx *sql.Tx, runIDs []int64) error {
	if len(runIDs) == 0 {
		return nil
	}
	placeholders := placeholderList(len(runIDs))
	args := int64sToArgs(runIDs)
	for _, q := range []string{
		"DELETE FROM diagnostics WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM surface WHERE run_id IN (" + placeholders + ")",
		"DELETE FROM runs WHERE id IN (" + placeholders + ")",
	} {
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("delete run data: %w", err)
		}
	}
	return nil
}
