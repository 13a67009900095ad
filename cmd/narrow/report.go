package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/narrow"
)

type reportOptions struct {
	limit  int
	forget bool
}

func newReportCmd(root *rootOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report [file...]",
		Short: "Show recorded prune runs",
		Long:  "Lists recorded runs per file with the latest run's diagnostics and the public surface changes between the two latest runs. Without arguments every recorded file is listed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, root, opts, args)
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 5, "runs to show per file (0 shows all)")
	cmd.Flags().BoolVar(&opts.forget, "forget", false, "delete the recorded runs of the named files")
	return cmd
}

// openStore opens the run database named by --db or found under the repo
// root.
func openStore(root *rootOptions) (*narrow.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(root.db, findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("no run database at %s (run prune with --db first)", dbPath)
	}
	return narrow.OpenStore(dbPath)
}

func runReport(cmd *cobra.Command, root *rootOptions, opts *reportOptions, args []string) error {
	s, err := openStore(root)
	if err != nil {
		return outputError(cmd, root, "report", err)
	}
	defer s.Close()

	if opts.forget {
		if len(args) == 0 {
			return outputError(cmd, root, "report", fmt.Errorf("--forget needs at least one file"))
		}
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return outputError(cmd, root, "report", err)
			}
			f, err := s.FileByPath(abs)
			if err != nil {
				return outputError(cmd, root, "report", err)
			}
			if f == nil {
				continue
			}
			if err := s.DeleteFileData(f.ID); err != nil {
				return outputError(cmd, root, "report", err)
			}
			loggerFromContext(cmd.Context()).Info("forgot", "file", abs)
		}
		return outputResult(cmd.OutOrStdout(), root.format, CLIResult{Command: "report", Results: []CLIFileReport{}})
	}

	var paths []string
	if len(args) == 0 {
		files, err := s.Files()
		if err != nil {
			return outputError(cmd, root, "report", err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	} else {
		for _, arg := range args {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return outputError(cmd, root, "report", err)
			}
			paths = append(paths, abs)
		}
	}

	reports := make([]CLIFileReport, 0, len(paths))
	for _, path := range paths {
		rep, err := fileReport(s, path, opts.limit)
		if err != nil {
			return outputError(cmd, root, "report", err)
		}
		if rep != nil {
			reports = append(reports, *rep)
		}
	}
	return outputResult(cmd.OutOrStdout(), root.format, CLIResult{Command: "report", Results: reports})
}

// fileReport collects the run history of path, or nil when nothing was
// recorded for it.
func fileReport(s *narrow.Store, path string, limit int) (*CLIFileReport, error) {
	f, err := s.FileByPath(path)
	if err != nil || f == nil {
		return nil, err
	}
	runs, err := s.RunsByFile(f.ID, limit)
	if err != nil {
		return nil, err
	}

	rep := &CLIFileReport{Path: f.Path, Hash: f.Hash, LastPruned: f.LastPruned, Runs: []CLIRun{}}
	for i, r := range runs {
		run := CLIRun{
			ID:         r.ID,
			CreatedAt:  r.CreatedAt,
			FileHash:   r.FileHash,
			ConfigHash: r.ConfigHash,
			DiagCount:  r.DiagCount,
		}
		// Diagnostics are listed for the latest run only.
		if i == 0 {
			diags, err := s.DiagnosticsByRun(r.ID)
			if err != nil {
				return nil, err
			}
			for _, d := range diags {
				run.Diagnostics = append(run.Diagnostics, storedDiagnosticToCLI(d))
			}
		}
		rep.Runs = append(rep.Runs, run)
	}

	delta, err := s.LatestSurfaceDelta(f.ID)
	if err != nil {
		return nil, err
	}
	rep.Delta = deltaToCLI(delta)
	return rep, nil
}
