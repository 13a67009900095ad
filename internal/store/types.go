package store

import "time"

// File is one pruned input, identified by path.
type File struct {
	ID         int64
	Path       string
	Hash       string
	LastPruned time.Time
}

// Run is one prune of a file under a given configuration.
type Run struct {
	ID         int64
	FileID     int64
	FileHash   string
	ConfigHash string
	Output     string
	DiagCount  int
	CreatedAt  time.Time
}

// Diagnostic is a recoverable condition reported by a run.
type Diagnostic struct {
	ID      int64
	RunID   int64
	Kind    string
	Name    string
	File    string
	Line    int
	Col     int
	Decl    string
	Member  string
	Site    string
	Message string
}

// SurfaceEntry is one retained top-level declaration of a run's output.
type SurfaceEntry struct {
	ID            int64
	RunID         int64
	Name          string
	Kind          string
	SignatureHash string
}

// RunRecord is everything one run writes, committed atomically.
type RunRecord struct {
	Path        string
	Run         Run
	Diagnostics []Diagnostic
	Surface     []SurfaceEntry
}
