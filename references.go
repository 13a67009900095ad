package narrow

import (
	"fmt"

	"github.com/jward/narrow/internal/decl"
)

// rewriteReferences points every type reference in a retained signature at
// a public type. References to exported or out-of-tree symbols are left as
// written; references to pruned symbols are replaced by the first
// substitute found, or reported as UnresolvedReference and left in place.
func (p *pruner) rewriteReferences(t *decl.Tree) (*decl.Tree, error) {
	return mapTree(t, func(scope string, n *decl.Node) (*decl.Node, error) {
		rw := &rewriter{p: p, owner: decl.Qualify(scope, n.Name)}
		return rw.node(n), nil
	})
}

// rewriter rewrites the signature sites of one declaration.
type rewriter struct {
	p     *pruner
	owner string
}

func (rw *rewriter) node(n *decl.Node) *decl.Node {
	switch n.Kind {
	case decl.KindEmpty, decl.KindEnum, decl.KindNamespace:
		return n
	}
	c := n.Clone()
	at := Location{File: n.Pos.File, Line: n.Pos.Line, Col: n.Pos.Col, Decl: rw.owner}
	c.TypeParams = rw.typeParams(c.TypeParams, at)

	switch n.Kind {
	case decl.KindClass, decl.KindInterface:
		for i := range c.Heritage {
			loc := at
			loc.Site = c.Heritage[i].Kind.String() + " clause"
			c.Heritage[i].Target = rw.expr(c.Heritage[i].Target, loc)
		}
		for i := range c.Members {
			c.Members[i] = rw.member(c.Members[i], at)
		}
	case decl.KindFunction:
		if c.Sig != nil {
			sig := rw.signature(*c.Sig, at)
			c.Sig = &sig
		}
	case decl.KindTypeAlias, decl.KindVariable:
		loc := at
		loc.Site = "type"
		c.Type = rw.expr(c.Type, loc)
	}
	return c
}

func (rw *rewriter) member(m decl.Member, at Location) decl.Member {
	loc := at
	loc.File, loc.Line, loc.Col = m.Pos.File, m.Pos.Line, m.Pos.Col
	switch m.Kind {
	case decl.MemberConstructor:
		loc.Member = "constructor"
	case decl.MemberIndex:
		loc.Member = "[index]"
	case decl.MemberCall:
		loc.Member = "(call)"
	default:
		loc.Member = m.Name
	}

	typeLoc := loc
	typeLoc.Site = "type"
	m.Type = rw.expr(m.Type, typeLoc)
	m.Sig = rw.signature(m.Sig, loc)
	return m
}

// signature returns a rewritten copy of sig.
func (rw *rewriter) signature(sig decl.Signature, at Location) decl.Signature {
	sig = sig.Clone()
	sig.TypeParams = rw.typeParams(sig.TypeParams, at)
	for i := range sig.Params {
		loc := at
		loc.Site = "parameter " + sig.Params[i].Name
		sig.Params[i].Type = rw.expr(sig.Params[i].Type, loc)
	}
	loc := at
	loc.Site = "return type"
	sig.Return = rw.expr(sig.Return, loc)
	return sig
}

func (rw *rewriter) typeParams(params []decl.TypeParam, at Location) []decl.TypeParam {
	if len(params) == 0 {
		return params
	}
	out := make([]decl.TypeParam, len(params))
	for i, tp := range params {
		loc := at
		loc.Site = "type parameter " + tp.Name + " constraint"
		tp.Constraint = rw.expr(tp.Constraint, loc)
		loc.Site = "type parameter " + tp.Name + " default"
		tp.Default = rw.expr(tp.Default, loc)
		out[i] = tp
	}
	return out
}

// expr rewrites the references of t from last to first so that earlier
// spans stay valid as names change length.
func (rw *rewriter) expr(t *decl.TypeExpr, loc Location) *decl.TypeExpr {
	if t == nil {
		return nil
	}
	out := t
	var unresolved []decl.TypeRef
	for i := len(t.Refs) - 1; i >= 0; i-- {
		ref := t.Refs[i]
		if ref.Bound {
			continue
		}
		sym := rw.p.resolver.Resolve(ref)
		if rw.p.public(sym) {
			continue
		}
		if sub := rw.p.substitute(sym); sub != nil && rw.p.acceptsArgs(sub, len(t.ArgsAt(i))) {
			out = out.WithRef(i, sub.Name)
			continue
		}
		unresolved = append(unresolved, ref)
	}
	for i := len(unresolved) - 1; i >= 0; i-- {
		ref := unresolved[i]
		rw.p.report(UnresolvedReference, loc, ref.Name,
			fmt.Sprintf("%q is not exported and no public type can stand in for it", ref.Name))
	}
	return out
}

// acceptsArgs reports whether sym can be written with n type arguments.
// Renaming the head of "Hidden<string>" to a stand-in of another arity
// would publish a declaration that does not type-check.
func (p *pruner) acceptsArgs(sym *decl.Symbol, n int) bool {
	for _, d := range p.resolver.DeclarationsOf(sym) {
		if len(d.TypeParams) == 0 {
			continue
		}
		required := 0
		for _, tp := range d.TypeParams {
			if tp.Default == nil {
				required++
			}
		}
		return n >= required && n <= len(d.TypeParams)
	}
	return n == 0
}

// substitute returns the public stand-in for a pruned symbol, or nil.
// Results are memoized for the call.
func (p *pruner) substitute(sym *decl.Symbol) *decl.Symbol {
	if sub, ok := p.substitutes[sym]; ok {
		return sub
	}
	sub := p.findSubstitute(sym)
	p.substitutes[sym] = sub
	return sub
}

// findSubstitute searches, in order: an exported symbol with the same name
// declared in the same file, the first exported declaration deriving from
// sym, and the nearest exported ancestor of sym.
func (p *pruner) findSubstitute(sym *decl.Symbol) *decl.Symbol {
	name := decl.LastSegment(sym.Name)
	for _, e := range p.exportOrder {
		if e == sym || !p.sameFile(e, sym) {
			continue
		}
		if decl.LastSegment(e.Name) == name {
			return e
		}
		for _, d := range p.resolver.DeclarationsOf(e) {
			if d.ExportedAs == name {
				return e
			}
		}
	}

	for _, e := range p.exportOrder {
		for _, d := range p.resolver.DeclarationsOf(e) {
			if !d.Kind.HasMembers() {
				continue
			}
			for _, h := range d.Heritage {
				if p.resolver.Resolve(h.Head()) == sym {
					return e
				}
			}
		}
	}

	seen := map[*decl.Symbol]bool{sym: true}
	queue := []*decl.Symbol{sym}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range p.resolver.DeclarationsOf(cur) {
			for _, h := range d.Heritage {
				anc := p.resolver.Resolve(h.Head())
				if anc == nil || seen[anc] {
					continue
				}
				if p.exported[anc] {
					return anc
				}
				seen[anc] = true
				queue = append(queue, anc)
			}
		}
	}
	return nil
}

// sameFile reports whether a and b have declarations in a common file.
func (p *pruner) sameFile(a, b *decl.Symbol) bool {
	files := make(map[string]bool)
	for _, d := range p.resolver.DeclarationsOf(a) {
		files[d.Pos.File] = true
	}
	for _, d := range p.resolver.DeclarationsOf(b) {
		if files[d.Pos.File] {
			return true
		}
	}
	return false
}
