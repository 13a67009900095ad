package narrow

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jward/narrow/internal/decl"
	"github.com/jward/narrow/internal/extract"
	"github.com/jward/narrow/internal/printer"
	"github.com/jward/narrow/internal/runtime"
	"github.com/jward/narrow/internal/store"
)

// Engine runs Prune over declaration files: it parses them, applies the
// configured policy, prints the narrowed declarations and, with a store,
// records every run so unchanged inputs are not pruned twice.
type Engine struct {
	cfg       Config
	store     *store.Store
	logger    *log.Logger
	scriptsFS fs.FS
	fixup     string

	// configHash keys the run cache: the config plus the policy script.
	configHash string

	// useParallel enables concurrent pruning in PruneFiles.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the pruning policy. The default is DefaultConfig().
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithStore records runs in s and reuses them for unchanged inputs. The
// Engine closes s on Close.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger routes Engine and policy script logging to l.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls parallel pruning. When true (default), PruneFiles
// prunes files concurrently, each with its own resolver. Set to false for
// serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS loads the policy script from fsys instead of from disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithFixup runs command on every file written by WriteResult, with the
// file path appended as the last argument.
func WithFixup(command string) Option {
	return func(e *Engine) {
		e.fixup = command
	}
}

// OpenStore opens (creating if needed) the run database at dbPath.
func OpenStore(dbPath string) (*store.Store, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("narrow: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("narrow: migrate: %w", err)
	}
	return s, nil
}

// New creates an Engine. When the config names a policy script, it is
// loaded now and evaluated under ctx for every member Prune considers.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:         DefaultConfig(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	h := sha256.New()
	h.Write([]byte(e.cfg.Hash()))

	if e.cfg.PolicyScript != "" {
		rtOpts := []runtime.RuntimeOption{runtime.WithLogger(e.logger)}
		dir, script := filepath.Split(e.cfg.PolicyScript)
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
			dir, script = "", e.cfg.PolicyScript
		}
		rt := runtime.NewRuntime(dir, rtOpts...)
		policy, err := runtime.NewPolicy(ctx, rt, script)
		if err != nil {
			return nil, fmt.Errorf("narrow: policy: %w", err)
		}
		e.cfg.Policy = policy
		h.Write([]byte(policy.Source()))
	}
	e.configHash = fmt.Sprintf("%x", h.Sum(nil))

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil when runs are not recorded.
func (e *Engine) Store() *Store {
	return e.store
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Result is the outcome of pruning one file.
type Result struct {
	Path   string
	Output string
	// Tree is the pruned tree; nil when the result came from the store.
	Tree        *decl.Tree
	Diagnostics []Diagnostic
	// Cached is set when an earlier run of identical input was reused.
	Cached bool
	// Delta lists public declarations that changed since the previous
	// recorded run.
	Delta []SurfaceChange
}

// PruneSource parses src as the file at path and prunes it. Nothing is
// recorded.
func (e *Engine) PruneSource(ctx context.Context, path string, src []byte) (*Result, error) {
	tree, err := extract.BuildSource(ctx, path, src)
	if err != nil {
		return nil, fmt.Errorf("narrow: %w", err)
	}
	return e.pruneTree(path, tree, decl.NewIndex(tree))
}

// PruneFile prunes the file at path. With a store, an unchanged file under
// an unchanged config returns the recorded output, and every fresh run is
// recorded along with its surface delta.
//
// Under FailOnUnresolved the Result is returned together with an error
// matching ErrUnresolved.
func (e *Engine) PruneFile(ctx context.Context, path string) (*Result, error) {
	var rec store.Recorder
	if e.store != nil {
		rec = e.store
	}
	res, err := e.pruneFile(ctx, path, rec)
	if res != nil && !res.Cached && e.store != nil {
		if derr := e.attachDelta(res); derr != nil {
			return res, derr
		}
	}
	return res, err
}

func (e *Engine) pruneFile(ctx context.Context, path string, rec store.Recorder) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("narrow: read %s: %w", path, err)
	}
	hash := store.ContentHash(content)

	if e.store != nil {
		cached, err := e.cached(path, hash)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			e.logger.Debug("unchanged", "file", path, "diagnostics", len(cached.Diagnostics))
			return cached, e.strictError(cached.Diagnostics)
		}
	}

	res, pruneErr := e.PruneSource(ctx, path, content)
	if res == nil {
		return nil, pruneErr
	}
	if rec != nil {
		if _, err := rec.RecordRun(e.runRecord(res, hash)); err != nil {
			return res, fmt.Errorf("narrow: record %s: %w", path, err)
		}
	}
	return res, pruneErr
}

// PruneProgram prunes several files as one program: declarations in one
// file may stand in for pruned declarations of another. Results are
// returned in path order. Program runs are not cached.
func (e *Engine) PruneProgram(ctx context.Context, paths []string) ([]*Result, error) {
	trees, idx, err := extract.BuildFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("narrow: %w", err)
	}

	merged := &decl.Tree{}
	for _, t := range trees {
		merged.Decls = append(merged.Decls, t.Decls...)
	}
	out, diags, pruneErr := Prune(merged, idx, e.cfg)
	if out == nil {
		return nil, fmt.Errorf("narrow: prune program: %w", pruneErr)
	}

	// Placeholders keep every top-level position, so the pruned
	// declarations split back into files by count.
	results := make([]*Result, len(trees))
	off := 0
	for i, t := range trees {
		part := &decl.Tree{
			Path:        t.Path,
			Imports:     t.Imports,
			Decls:       out.Decls[off : off+len(t.Decls)],
			Passthrough: t.Passthrough,
		}
		off += len(t.Decls)

		var own []Diagnostic
		for _, d := range diags {
			if d.Location.File == t.Path {
				own = append(own, d)
			}
		}
		results[i] = &Result{Path: t.Path, Output: printer.Print(part), Tree: part, Diagnostics: own}
		e.logResult(results[i])
	}
	return results, pruneErr
}

func (e *Engine) pruneTree(path string, tree *decl.Tree, resolver decl.Resolver) (*Result, error) {
	out, diags, err := Prune(tree, resolver, e.cfg)
	if out == nil {
		return nil, fmt.Errorf("narrow: prune %s: %w", path, err)
	}
	res := &Result{
		Path:        path,
		Output:      printer.Print(out),
		Tree:        out,
		Diagnostics: diags,
	}
	e.logResult(res)
	return res, err
}

func (e *Engine) logResult(res *Result) {
	kept := 0
	for _, n := range res.Tree.Decls {
		if n.Kind != decl.KindEmpty {
			kept++
		}
	}
	e.logger.Debug("pruned", "file", res.Path, "kept", kept, "diagnostics", len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		e.logger.Warn(d.Message, "kind", d.Kind, "at", d.Location.String())
	}
}

// strictError mirrors Prune's FailOnUnresolved behavior for cached runs.
func (e *Engine) strictError(diags []Diagnostic) error {
	if !e.cfg.FailOnUnresolved {
		return nil
	}
	return unresolvedError(diags)
}

// cached returns the recorded result for an unchanged file, or nil.
func (e *Engine) cached(path, hash string) (*Result, error) {
	f, err := e.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("narrow: lookup %s: %w", path, err)
	}
	if f == nil || f.Hash != hash {
		return nil, nil
	}
	run, err := e.store.LatestRun(f.ID)
	if err != nil {
		return nil, fmt.Errorf("narrow: lookup %s: %w", path, err)
	}
	if run == nil || run.FileHash != hash || run.ConfigHash != e.configHash {
		return nil, nil
	}
	stored, err := e.store.DiagnosticsByRun(run.ID)
	if err != nil {
		return nil, fmt.Errorf("narrow: lookup %s: %w", path, err)
	}
	diags := make([]Diagnostic, len(stored))
	for i, d := range stored {
		diags[i] = diagnosticFromStore(d)
	}
	return &Result{Path: path, Output: run.Output, Diagnostics: diags, Cached: true}, nil
}

func (e *Engine) attachDelta(res *Result) error {
	f, err := e.store.FileByPath(res.Path)
	if err != nil || f == nil {
		return err
	}
	delta, err := e.store.LatestSurfaceDelta(f.ID)
	if err != nil {
		return fmt.Errorf("narrow: surface delta %s: %w", res.Path, err)
	}
	res.Delta = delta
	for _, c := range delta {
		e.logger.Info("surface "+string(c.Change), "file", res.Path, "decl", c.Name, "kind", c.Kind)
	}
	return nil
}

func (e *Engine) runRecord(res *Result, hash string) *store.RunRecord {
	rec := &store.RunRecord{
		Path: res.Path,
		Run: store.Run{
			FileHash:   hash,
			ConfigHash: e.configHash,
			Output:     res.Output,
		},
		Surface: surfaceOf(res.Tree),
	}
	for _, d := range res.Diagnostics {
		rec.Diagnostics = append(rec.Diagnostics, diagnosticToStore(d))
	}
	return rec
}

func diagnosticToStore(d Diagnostic) store.Diagnostic {
	return store.Diagnostic{
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

func diagnosticFromStore(d *store.Diagnostic) Diagnostic {
	return Diagnostic{
		Kind: DiagnosticKind(d.Kind),
		Location: Location{
			File:   d.File,
			Line:   d.Line,
			Col:    d.Col,
			Decl:   d.Decl,
			Member: d.Member,
			Site:   d.Site,
		},
		Name:    d.Name,
		Message: d.Message,
	}
}

// WriteResult writes res.Output to path, closes it, then runs the fix-up
// command if one is configured. A failing fix-up is logged and does not
// fail the write.
func (e *Engine) WriteResult(ctx context.Context, res *Result, path string) error {
	if err := writeFile(path, res.Output); err != nil {
		return fmt.Errorf("narrow: write %s: %w", path, err)
	}
	args := strings.Fields(e.fixup)
	if len(args) == 0 {
		return nil
	}
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		e.logger.Warn("fixup failed", "file", path, "err", err, "stderr", strings.TrimSpace(stderr.String()))
	}
	return nil
}

func writeFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// skipDirs are excluded from directory discovery.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// PruneDirectory prunes every supported file under root. If root is inside
// a git repository, uses git ls-files to respect .gitignore. Falls back to
// a filesystem walk (skipping hidden dirs, node_modules, vendor) if git is
// unavailable.
func (e *Engine) PruneDirectory(ctx context.Context, root string) ([]*Result, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available, fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return e.PruneFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported extensions.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if extract.Supported(absPath) {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if extract.Supported(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
