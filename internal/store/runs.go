package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- File operations ---

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	var last sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, path, hash, last_pruned FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	f.LastPruned = last.Time
	return f, nil
}

// Files returns every recorded file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, hash, last_pruned FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		var last sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &last); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.LastPruned = last.Time
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Run operations ---

// RecordRun writes a run with its diagnostics and surface in one
// transaction, creating or updating the file row. Returns the run ID.
func (s *Store) RecordRun(rec *RunRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	id, err := recordRunTx(tx, rec)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: commit: %w", err)
	}
	return id, nil
}

func recordRunTx(tx *sql.Tx, rec *RunRecord) (int64, error) {
	created := rec.Run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	if _, err := tx.Exec(
		`INSERT INTO files (path, hash, last_pruned) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, last_pruned = excluded.last_pruned`,
		rec.Path, rec.Run.FileHash, created,
	); err != nil {
		return 0, fmt.Errorf("record run: file %s: %w", rec.Path, err)
	}
	var fileID int64
	if err := tx.QueryRow("SELECT id FROM files WHERE path = ?", rec.Path).Scan(&fileID); err != nil {
		return 0, fmt.Errorf("record run: file id: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO runs (file_id, file_hash, config_hash, output, diag_count, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		fileID, rec.Run.FileHash, rec.Run.ConfigHash, rec.Run.Output, len(rec.Diagnostics), created,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, d := range rec.Diagnostics {
		if _, err := tx.Exec(
			`INSERT INTO diagnostics (run_id, kind, name, file, line, col, decl, member, site, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, d.Kind, d.Name, d.File, d.Line, d.Col, d.Decl, d.Member, d.Site, d.Message,
		); err != nil {
			return 0, fmt.Errorf("record run: diagnostic %q: %w", d.Name, err)
		}
	}
	for _, e := range rec.Surface {
		if _, err := tx.Exec(
			"INSERT INTO surface (run_id, name, kind, signature_hash) VALUES (?, ?, ?, ?)",
			runID, e.Name, e.Kind, e.SignatureHash,
		); err != nil {
			return 0, fmt.Errorf("record run: surface %q: %w", e.Name, err)
		}
	}

	rec.Run.ID = runID
	rec.Run.FileID = fileID
	rec.Run.DiagCount = len(rec.Diagnostics)
	rec.Run.CreatedAt = created
	return runID, nil
}

const runColumns = "id, file_id, file_hash, config_hash, output, diag_count, created_at"

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var created sql.NullTime
	if err := scanner.Scan(&r.ID, &r.FileID, &r.FileHash, &r.ConfigHash, &r.Output, &r.DiagCount, &created); err != nil {
		return nil, err
	}
	r.CreatedAt = created.Time
	return r, nil
}

// LatestRun returns the newest run of a file, or nil when there is none.
func (s *Store) LatestRun(fileID int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE file_id = ? ORDER BY id DESC LIMIT 1", fileID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// RunsByFile returns up to limit runs of a file, newest first. A
// non-positive limit returns all runs.
func (s *Store) RunsByFile(fileID int64, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT "+runColumns+" FROM runs WHERE file_id = ? ORDER BY id DESC LIMIT ?", fileID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("runs by file: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DiagnosticsByRun returns a run's diagnostics in report order.
func (s *Store) DiagnosticsByRun(runID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, kind, name, file, line, col, decl, member, site, message
		 FROM diagnostics WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by run: %w", err)
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		if err := rows.Scan(&d.ID, &d.RunID, &d.Kind, &d.Name, &d.File, &d.Line, &d.Col,
			&d.Decl, &d.Member, &d.Site, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// SurfaceByRun returns a run's retained declarations in output order.
func (s *Store) SurfaceByRun(runID int64) ([]*SurfaceEntry, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, name, kind, signature_hash FROM surface WHERE run_id = ? ORDER BY id", runID,
	)
	if err != nil {
		return nil, fmt.Errorf("surface by run: %w", err)
	}
	defer rows.Close()
	var entries []*SurfaceEntry
	for rows.Next() {
		e := &SurfaceEntry{}
		if err := rows.Scan(&e.ID, &e.RunID, &e.Name, &e.Kind, &e.SignatureHash); err != nil {
			return nil, fmt.Errorf("scan surface entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
