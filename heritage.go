package narrow

import (
	"fmt"
	"strings"

	"github.com/jward/narrow/internal/decl"
)

// resolveHeritage removes every heritage edge whose target is a pruned
// declaration and copies the target's members onto the subtype instead.
// Edges to exported or out-of-tree types are kept in their original order.
// A class or interface left without edges has a nil heritage clause.
func (p *pruner) resolveHeritage(t *decl.Tree) (*decl.Tree, error) {
	return mapTree(t, func(scope string, n *decl.Node) (*decl.Node, error) {
		if !n.Kind.HasMembers() || len(n.Heritage) == 0 {
			return n, nil
		}
		c := n.Clone()
		in := newInliner(p, decl.Qualify(scope, n.Name), c)
		for _, e := range n.Heritage {
			sym := p.resolver.Resolve(e.Head())
			if p.public(sym) {
				in.link(e, sym)
				continue
			}
			if err := in.inline(e.Kind, sym, in.bindings(sym, e.Target)); err != nil {
				return nil, err
			}
		}
		c.Heritage = in.edges
		return c, nil
	})
}

// inliner rebuilds the heritage clause and member list of one subtype.
type inliner struct {
	p    *pruner
	sub  *decl.Node
	name string

	edges      []decl.HeritageEdge
	linked     map[*decl.Symbol]bool
	linkedText map[string]bool // out-of-tree supertypes, by target text

	// source records which hidden supertype contributed a member name; own
	// members map to nil. The first contributor wins.
	source    map[string]*decl.Symbol
	visited   map[*decl.Symbol]bool
	ambiguous map[string]bool
}

func newInliner(p *pruner, name string, sub *decl.Node) *inliner {
	in := &inliner{
		p:          p,
		sub:        sub,
		name:       name,
		linked:     make(map[*decl.Symbol]bool),
		linkedText: make(map[string]bool),
		source:     make(map[string]*decl.Symbol),
		visited:    make(map[*decl.Symbol]bool),
		ambiguous:  make(map[string]bool),
	}
	for _, m := range sub.Members {
		if m.Name != "" {
			in.source[m.Name] = nil
		}
	}
	return in
}

// link appends an edge to a public supertype unless the subtype already
// reaches it.
func (in *inliner) link(e decl.HeritageEdge, sym *decl.Symbol) {
	if in.reaches(sym, e.Target) {
		return
	}
	if sym != nil {
		in.linked[sym] = true
	} else {
		in.linkedText[e.Target.String()] = true
	}
	in.edges = append(in.edges, e)
}

func (in *inliner) reaches(sym *decl.Symbol, target *decl.TypeExpr) bool {
	if sym != nil {
		return in.linked[sym]
	}
	return in.linkedText[target.String()]
}

func (in *inliner) hasExtends() bool {
	for _, e := range in.edges {
		if e.Kind == decl.Extends {
			return true
		}
	}
	return false
}

// inline copies the members of the hidden type sym onto the subtype and
// then walks sym's own supertypes: hidden ones are inlined in turn, public
// ones are promoted into the subtype's heritage clause. kind is the edge
// kind a promoted ancestor would get.
func (in *inliner) inline(kind decl.HeritageKind, sym *decl.Symbol, bindings map[string]*decl.TypeExpr) error {
	if in.visited[sym] {
		return nil
	}
	in.visited[sym] = true

	decls := in.p.resolver.DeclarationsOf(sym)
	var owner *decl.Node
	for _, d := range decls {
		if d.Kind.HasMembers() {
			owner = d
			break
		}
	}
	if owner == nil {
		got := decl.KindEmpty
		if len(decls) > 0 {
			got = decls[0].Kind
		}
		return &decl.UnsupportedKindError{Name: sym.Name, Kind: got, Site: in.name, Pos: in.sub.Pos}
	}

	if err := in.copyMembers(sym, owner, bindings); err != nil {
		return err
	}

	for _, d := range decls {
		if !d.Kind.HasMembers() {
			continue
		}
		for _, e := range d.Heritage {
			anc := in.p.resolver.Resolve(e.Head())
			target := e.Target.Substitute(bindings)
			next := in.compose(kind, e.Kind)
			if in.p.public(anc) && in.p.cfg.PromoteAncestors && in.promote(next, anc, target) {
				continue
			}
			if anc == nil {
				// Out-of-tree ancestor that cannot be linked or enumerated.
				continue
			}
			if err := in.inline(next, anc, in.bindings(anc, target)); err != nil {
				return err
			}
		}
	}
	return nil
}

// compose returns the kind of an edge reached through a chain of edges.
// Interfaces only extend; a class extends an ancestor only when every link
// of the chain is an extends.
func (in *inliner) compose(outer, inner decl.HeritageKind) decl.HeritageKind {
	if in.sub.Kind == decl.KindInterface {
		return decl.Extends
	}
	if outer == decl.Extends && inner == decl.Extends {
		return decl.Extends
	}
	return decl.Implements
}

// promote links a public ancestor. It reports false when the edge cannot be
// added because a class already extends something else.
func (in *inliner) promote(kind decl.HeritageKind, sym *decl.Symbol, target *decl.TypeExpr) bool {
	if in.reaches(sym, target) {
		return true
	}
	if kind == decl.Extends && in.sub.Kind == decl.KindClass && in.hasExtends() {
		return false
	}
	in.link(decl.HeritageEdge{Kind: kind, Target: target}, sym)
	return true
}

// bindings maps the type parameters of sym to the arguments written in
// target, falling back to parameter defaults.
func (in *inliner) bindings(sym *decl.Symbol, target *decl.TypeExpr) map[string]*decl.TypeExpr {
	if sym == nil {
		return nil
	}
	var params []decl.TypeParam
	for _, d := range in.p.resolver.DeclarationsOf(sym) {
		if d.Kind.HasMembers() && len(d.TypeParams) > 0 {
			params = d.TypeParams
			break
		}
	}
	if len(params) == 0 {
		return nil
	}
	args := target.Args()
	b := make(map[string]*decl.TypeExpr, len(params))
	for i, tp := range params {
		switch {
		case i < len(args):
			b[tp.Name] = args[i]
		case tp.Default != nil:
			b[tp.Name] = tp.Default.Substitute(b)
		}
	}
	return b
}

func (in *inliner) copyMembers(sym *decl.Symbol, owner *decl.Node, bindings map[string]*decl.TypeExpr) error {
	var candidates []decl.Member
	for _, m := range in.p.resolver.MembersOf(sym) {
		ok, err := in.copyable(owner, &m)
		if err != nil {
			return err
		}
		if ok {
			candidates = append(candidates, m)
		}
	}

	docs := in.overloadDocs(sym, candidates)
	copied := make(map[string]int)
	for _, m := range candidates {
		if m.Name != "" {
			if src, ok := in.source[m.Name]; ok && src != sym {
				continue
			}
			in.source[m.Name] = sym
		} else if in.duplicate(m) {
			continue
		}

		c := substituteMember(m, bindings)
		if !in.sub.Abstract {
			c.Abstract = false
		}
		key := overloadKey(m)
		if d, ok := docs[key]; ok {
			c.Doc = d[copied[key]]
		}
		copied[key]++
		in.sub.Members = append(in.sub.Members, c)
	}
	return nil
}

func (in *inliner) copyable(owner *decl.Node, m *decl.Member) (bool, error) {
	switch {
	case m.Kind == decl.MemberConstructor:
		return false, nil
	case m.Visibility == decl.VisibilityPrivate:
		return false, nil
	case in.sub.Kind == decl.KindInterface && (m.Static || m.Visibility == decl.VisibilityProtected):
		return false, nil
	case in.sub.Kind == decl.KindClass && m.Kind == decl.MemberCall:
		return false, nil
	}
	hide, err := in.p.hidden(owner, m)
	return !hide, err
}

// duplicate reports whether an unnamed member (index or call signature)
// with the same shape is already present on the subtype.
func (in *inliner) duplicate(m decl.Member) bool {
	key := shapeKey(m)
	for _, have := range in.sub.Members {
		if have.Kind == m.Kind && have.Name == "" && shapeKey(have) == key {
			return true
		}
	}
	return false
}

func shapeKey(m decl.Member) string {
	var b strings.Builder
	for _, prm := range m.Sig.Params {
		b.WriteString(prm.Type.String())
		b.WriteByte(',')
	}
	b.WriteString(m.Sig.Return.String())
	b.WriteByte('|')
	b.WriteString(m.Type.String())
	return b.String()
}

// overloadKey groups the overloads of one member. A getter and a setter
// of the same name are separate groups.
func overloadKey(m decl.Member) string {
	return m.Name + "\x00" + m.Kind.String() + "\x00" + m.Accessor
}

// overloadDocs assigns documentation to copied members by overload
// position, keyed by overloadKey. For a group with several overloads the
// docs are used only when every overload is documented or none is; any
// other mix is reported once per name and the overloads are copied
// undocumented.
func (in *inliner) overloadDocs(sym *decl.Symbol, members []decl.Member) map[string][]decl.Doc {
	byKey := make(map[string][]decl.Doc)
	names := make(map[string]string)
	var order []string
	for _, m := range members {
		if m.Name == "" {
			continue
		}
		key := overloadKey(m)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
			names[key] = m.Name
		}
		byKey[key] = append(byKey[key], m.Doc)
	}

	out := make(map[string][]decl.Doc, len(byKey))
	for _, key := range order {
		docs := byKey[key]
		documented := 0
		for _, d := range docs {
			if !d.Empty() {
				documented++
			}
		}
		if len(docs) == 1 || documented == 0 || documented == len(docs) {
			out[key] = docs
			continue
		}
		out[key] = make([]decl.Doc, len(docs))
		name := names[key]
		if in.ambiguous[name] {
			continue
		}
		in.ambiguous[name] = true
		in.p.report(AmbiguousOverloadDoc, Location{
			File:   in.sub.Pos.File,
			Line:   in.sub.Pos.Line,
			Col:    in.sub.Pos.Col,
			Decl:   in.name,
			Member: name,
			Site:   "inherited from " + sym.Name,
		}, name, fmt.Sprintf("%d of %d overloads of %s.%s are documented; copied without documentation",
			documented, len(docs), sym.Name, name))
	}
	return out
}

func substituteMember(m decl.Member, bindings map[string]*decl.TypeExpr) decl.Member {
	if len(bindings) == 0 {
		return m
	}
	m.Type = m.Type.Substitute(bindings)
	m.Sig = substituteSig(m.Sig, bindings)
	return m
}

func substituteSig(sig decl.Signature, bindings map[string]*decl.TypeExpr) decl.Signature {
	sig = sig.Clone()
	for i := range sig.TypeParams {
		sig.TypeParams[i].Constraint = sig.TypeParams[i].Constraint.Substitute(bindings)
		sig.TypeParams[i].Default = sig.TypeParams[i].Default.Substitute(bindings)
	}
	for i := range sig.Params {
		sig.Params[i].Type = sig.Params[i].Type.Substitute(bindings)
	}
	sig.Return = sig.Return.Substitute(bindings)
	return sig
}
