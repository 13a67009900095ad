package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/narrow"
	"github.com/jward/narrow/scripts"
)

type pruneOptions struct {
	config       string
	strict       bool
	hiddenPrefix string
	policy       string
	out          string
	fixup        string
	program      bool
	serial       bool
	keep         int
}

func newPruneCmd(root *rootOptions) *cobra.Command {
	opts := &pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune [path...]",
		Short: "Prune declaration files to their public surface",
		Long: "Prunes each .d.ts/.ts file (directories are searched recursively). " +
			"Without --out the pruned declarations are printed; with --db runs are " +
			"recorded and unchanged inputs are reused.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "narrow.yaml", "config file (missing file uses defaults)")
	f.BoolVar(&opts.strict, "strict", false, "fail when a reference to a pruned type cannot be rewritten")
	f.StringVar(&opts.hiddenPrefix, "hidden-prefix", "", "member name prefix that marks hidden members (empty disables)")
	f.StringVar(&opts.policy, "policy", "", "Risor visibility policy script, or a built-in policy name ("+strings.Join(scripts.Builtin, ", ")+")")
	f.StringVar(&opts.out, "out", "", "write pruned files under this directory")
	f.StringVar(&opts.fixup, "fixup", "", "command run on each written file, e.g. \"prettier --write\"")
	f.BoolVar(&opts.program, "program", false, "prune all files as one program (cross-file substitutes)")
	f.BoolVar(&opts.serial, "serial", false, "prune files one at a time")
	f.IntVar(&opts.keep, "keep", 10, "runs to keep per file in the database (0 keeps all)")
	return cmd
}

// loadPruneConfig reads the config file and applies flag overrides.
func loadPruneConfig(cmd *cobra.Command, opts *pruneOptions) (narrow.Config, error) {
	cfg, err := narrow.LoadConfig(opts.config)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("strict") {
		cfg.FailOnUnresolved = opts.strict
	}
	if cmd.Flags().Changed("hidden-prefix") {
		cfg.HiddenPrefix = opts.hiddenPrefix
	}
	if opts.policy != "" {
		cfg.PolicyScript = opts.policy
	}
	return cfg, cfg.Validate()
}

func runPrune(cmd *cobra.Command, root *rootOptions, opts *pruneOptions, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := loadPruneConfig(cmd, opts)
	if err != nil {
		return outputError(cmd, root, "prune", err)
	}

	engineOpts := []narrow.Option{
		narrow.WithConfig(cfg),
		narrow.WithLogger(logger),
		narrow.WithFixup(opts.fixup),
		narrow.WithParallel(!opts.serial),
	}
	if name, ok := builtinPolicy(cfg.PolicyScript); ok {
		cfg.PolicyScript = name
		engineOpts = append(engineOpts, narrow.WithConfig(cfg), narrow.WithScriptsFS(scripts.FS))
	}
	var s *narrow.Store
	if root.db != "" {
		cwd, err := os.Getwd()
		if err != nil {
			return outputError(cmd, root, "prune", err)
		}
		dbPath := resolveDBPath(root.db, findRepoRoot(cwd))
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return outputError(cmd, root, "prune", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
		}
		s, err = narrow.OpenStore(dbPath)
		if err != nil {
			return outputError(cmd, root, "prune", err)
		}
		engineOpts = append(engineOpts, narrow.WithStore(s))
	}

	engine, err := narrow.New(ctx, engineOpts...)
	if err != nil {
		if s != nil {
			s.Close()
		}
		return outputError(cmd, root, "prune", err)
	}
	defer engine.Close()

	if len(args) == 0 {
		args = []string{"."}
	}
	results, pruneErr := pruneArgs(cmd, engine, opts.program, args)

	cli := []CLIPruneResult{}
	for _, res := range results {
		if res == nil {
			continue
		}
		written := ""
		if opts.out != "" {
			written = outputPath(opts.out, res.Path)
			if err := engine.WriteResult(ctx, res, written); err != nil {
				return outputError(cmd, root, "prune", err)
			}
		}
		cli = append(cli, resultToCLI(res, written))
	}

	if s != nil && opts.keep > 0 {
		for _, res := range results {
			if res == nil || res.Cached {
				continue
			}
			f, err := s.FileByPath(res.Path)
			if err != nil || f == nil {
				continue
			}
			if err := s.TrimRuns(f.ID, opts.keep); err != nil {
				logger.Warn("trim runs failed", "file", res.Path, "err", err)
			}
		}
	}

	prog.done(fmt.Sprintf("Pruned %d file(s)", len(cli)))

	result := CLIResult{Command: "prune", Results: cli}
	if pruneErr != nil && root.format == "json" {
		result.Error = pruneErr.Error()
		root.errorHandled = true
	}
	if err := outputResult(cmd.OutOrStdout(), root.format, result); err != nil {
		return err
	}
	return pruneErr
}

// builtinPolicy maps a policy name with no file on disk to its embedded
// script.
func builtinPolicy(policy string) (string, bool) {
	if policy == "" {
		return "", false
	}
	if _, err := os.Stat(policy); err == nil {
		return "", false
	}
	name := strings.TrimSuffix(policy, ".risor") + ".risor"
	if _, err := fs.Stat(scripts.FS, name); err != nil {
		return "", false
	}
	return name, true
}

// pruneArgs prunes the named files and directories. Paths are made absolute
// so runs recorded from different working directories share history.
func pruneArgs(cmd *cobra.Command, engine *narrow.Engine, program bool, args []string) ([]*narrow.Result, error) {
	ctx := cmd.Context()

	var files, dirs []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %q: %w", arg, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", abs)
		}
		if info.IsDir() {
			dirs = append(dirs, abs)
		} else {
			files = append(files, abs)
		}
	}

	if program {
		if len(dirs) > 0 {
			return nil, fmt.Errorf("--program takes files, not directories: %s", strings.Join(dirs, ", "))
		}
		return engine.PruneProgram(ctx, files)
	}

	var (
		all  []*narrow.Result
		errs []error
	)
	if len(files) > 0 {
		res, err := engine.PruneFiles(ctx, files)
		all = append(all, res...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, dir := range dirs {
		res, err := engine.PruneDirectory(ctx, dir)
		all = append(all, res...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return all, errs[0]
	}
	return all, nil
}

// outputPath maps an input file to its location under outDir, keeping the
// path relative to the working directory when the input lies beneath it.
func outputPath(outDir, input string) string {
	if cwd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(cwd, input); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(outDir, rel)
		}
	}
	return filepath.Join(outDir, filepath.Base(input))
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode main prints it to stderr.
func outputError(cmd *cobra.Command, root *rootOptions, command string, err error) error {
	if root.format != "json" {
		return err
	}
	root.errorHandled = true
	_ = outputResult(cmd.OutOrStdout(), root.format, CLIResult{
		Command: command,
		Error:   err.Error(),
	})
	return err
}
