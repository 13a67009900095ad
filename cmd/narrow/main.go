package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	db      string
	format  string
	verbose bool

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func main() {
	opts := &rootOptions{}
	if err := newRootCmd(opts).ExecuteContext(context.Background()); err != nil {
		if !opts.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "narrow",
		Short:         "Prune TypeScript declarations to their public surface",
		Long:          "Narrow removes non-public declarations and members from TypeScript declaration files, inlining hidden supertypes and rewriting references to hidden types.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := log.InfoLevel
			if opts.verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
			return validateFormat(opts.format)
		},
		// No Run: prints help by default.
	}

	root.PersistentFlags().StringVar(&opts.db, "db", "", "run database path (default: .narrow/runs.db relative to repo root for report)")
	root.PersistentFlags().StringVar(&opts.format, "format", "text", "output format: json|text")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newPruneCmd(opts))
	root.AddCommand(newReportCmd(opts))
	return root
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the default
// under repoRoot.
func resolveDBPath(flagDB, repoRoot string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return filepath.Join(repoRoot, ".narrow", "runs.db")
}
