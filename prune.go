package narrow

import (
	"fmt"
	"strings"

	"github.com/jward/narrow/internal/decl"
)

// Prune narrows tree to its public surface. resolver must answer for the
// original tree and stays in use for the whole call. tree is not modified;
// the returned tree shares unchanged nodes with it.
//
// Fatal conditions (an invalid config, a hidden supertype that is neither a
// class nor an interface, a failing member policy) return a nil tree.
// Recoverable conditions are returned as diagnostics next to a best-effort
// tree. With cfg.FailOnUnresolved, unresolved references additionally
// produce an error matching ErrUnresolved; the tree and diagnostics are
// still returned.
func Prune(tree *decl.Tree, resolver decl.Resolver, cfg Config) (*decl.Tree, []Diagnostic, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	p := newPruner(tree, resolver, cfg)

	out := p.filterExports(tree)
	out, err := p.filterMembers(out)
	if err != nil {
		return nil, nil, err
	}
	out, err = p.resolveHeritage(out)
	if err != nil {
		return nil, nil, err
	}
	out, err = p.rewriteReferences(out)
	if err != nil {
		return nil, nil, err
	}

	if cfg.FailOnUnresolved {
		if err := unresolvedError(p.diags); err != nil {
			return out, p.diags, err
		}
	}
	return out, p.diags, nil
}

// pruner carries the per-call state shared by the stages. The exported set
// is computed once from the original tree; stages never consult each
// other's output for symbol questions.
type pruner struct {
	cfg      Config
	resolver decl.Resolver

	exported    map[*decl.Symbol]bool
	exportOrder []*decl.Symbol

	substitutes map[*decl.Symbol]*decl.Symbol
	diags       []Diagnostic
}

func newPruner(tree *decl.Tree, resolver decl.Resolver, cfg Config) *pruner {
	p := &pruner{
		cfg:         cfg,
		resolver:    resolver,
		exported:    make(map[*decl.Symbol]bool),
		substitutes: make(map[*decl.Symbol]*decl.Symbol),
	}
	p.exportOrder = resolver.ExportsOf(tree)
	for _, sym := range p.exportOrder {
		p.exported[sym] = true
	}
	return p
}

// public reports whether a resolved symbol may be named in the output.
// Symbols outside the tree are assumed public.
func (p *pruner) public(sym *decl.Symbol) bool {
	return sym == nil || p.exported[sym]
}

// hidden reports whether a named member is excluded by the naming
// convention or the configured policy.
func (p *pruner) hidden(owner *decl.Node, m *decl.Member) (bool, error) {
	if m.Name == "" || m.Kind == decl.MemberConstructor {
		return false, nil
	}
	if p.cfg.HiddenPrefix != "" && strings.HasPrefix(m.Name, p.cfg.HiddenPrefix) {
		return true, nil
	}
	if p.cfg.Policy == nil {
		return false, nil
	}
	hide, err := p.cfg.Policy.Hidden(owner, m)
	if err != nil {
		return false, fmt.Errorf("narrow: policy for %s.%s: %w", owner.Name, m.Name, err)
	}
	return hide, nil
}

func (p *pruner) report(kind DiagnosticKind, loc Location, name, msg string) {
	p.diags = append(p.diags, Diagnostic{Kind: kind, Location: loc, Name: name, Message: msg})
}
