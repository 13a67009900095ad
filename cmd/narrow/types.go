package main

import (
	"time"

	"github.com/jward/narrow"
	"github.com/jward/narrow/internal/store"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIPruneResult is a JSON-friendly prune outcome for one file.
type CLIPruneResult struct {
	File        string             `json:"file"`
	Output      string             `json:"output,omitempty"`
	Written     string             `json:"written,omitempty"`
	Cached      bool               `json:"cached"`
	Diagnostics []CLIDiagnostic    `json:"diagnostics,omitempty"`
	Delta       []CLISurfaceChange `json:"delta,omitempty"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Decl    string `json:"decl"`
	Member  string `json:"member,omitempty"`
	Site    string `json:"site,omitempty"`
	Message string `json:"message"`
}

// CLISurfaceChange is a JSON-friendly public surface change.
type CLISurfaceChange struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Change string `json:"change"`
}

// CLIRun is a JSON-friendly recorded run.
type CLIRun struct {
	ID          int64           `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	FileHash    string          `json:"file_hash"`
	ConfigHash  string          `json:"config_hash"`
	DiagCount   int             `json:"diag_count"`
	Diagnostics []CLIDiagnostic `json:"diagnostics,omitempty"`
}

// CLIFileReport is the run history of one file.
type CLIFileReport struct {
	Path       string             `json:"path"`
	Hash       string             `json:"hash"`
	LastPruned time.Time          `json:"last_pruned"`
	Runs       []CLIRun           `json:"runs"`
	Delta      []CLISurfaceChange `json:"delta,omitempty"`
}

func diagnosticToCLI(d narrow.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		Kind:    string(d.Kind),
		Name:    d.Name,
		File:    d.Location.File,
		Line:    d.Location.Line,
		Col:     d.Location.Col,
		Decl:    d.Location.Decl,
		Member:  d.Location.Member,
		Site:    d.Location.Site,
		Message: d.Message,
	}
}

func storedDiagnosticToCLI(d *store.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		Kind:    d.Kind,
		Name:    d.Name,
		File:    d.File,
		Line:    d.Line,
		Col:     d.Col,
		Decl:    d.Decl,
		Member:  d.Member,
		Site:    d.Site,
		Message: d.Message,
	}
}

func deltaToCLI(delta []narrow.SurfaceChange) []CLISurfaceChange {
	if len(delta) == 0 {
		return nil
	}
	out := make([]CLISurfaceChange, len(delta))
	for i, c := range delta {
		out[i] = CLISurfaceChange{Name: c.Name, Kind: c.Kind, Change: string(c.Change)}
	}
	return out
}

func resultToCLI(res *narrow.Result, written string) CLIPruneResult {
	r := CLIPruneResult{
		File:    res.Path,
		Written: written,
		Cached:  res.Cached,
		Delta:   deltaToCLI(res.Delta),
	}
	if written == "" {
		r.Output = res.Output
	}
	for _, d := range res.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, diagnosticToCLI(d))
	}
	return r
}
