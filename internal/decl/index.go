package decl

import "strings"

// Index is an in-memory Resolver over one or more original trees. Symbols
// are keyed by qualified name; declarations sharing a name are merged in
// source order. When several module files are indexed together, only their
// exported top-level names are shared; the rest stay local to their file.
type Index struct {
	symbols map[string]*Symbol
	local   map[string]map[string]*Symbol
	byNode  map[*Node]*Symbol
}

var _ Resolver = (*Index)(nil)

// NewIndex indexes every named declaration of trees, descending into
// namespaces.
func NewIndex(trees ...*Tree) *Index {
	x := &Index{
		symbols: make(map[string]*Symbol),
		local:   make(map[string]map[string]*Symbol),
		byNode:  make(map[*Node]*Symbol),
	}
	for _, t := range trees {
		if len(trees) == 1 || !t.IsModule() {
			x.add("", "", t.Decls)
			continue
		}
		exported := make(map[string]bool)
		for _, n := range t.Decls {
			if n.Exported {
				exported[n.Name] = true
			}
		}
		for _, n := range t.Decls {
			file := t.Path
			if exported[n.Name] {
				file = ""
			}
			x.add("", file, []*Node{n})
		}
	}
	return x
}

// add indexes decls under scope. A non-empty file keeps them local to that
// file.
func (x *Index) add(scope, file string, decls []*Node) {
	table := x.symbols
	if file != "" {
		table = x.local[file]
		if table == nil {
			table = make(map[string]*Symbol)
			x.local[file] = table
		}
	}
	for _, n := range decls {
		if n.Kind == KindEmpty || n.Name == "" {
			continue
		}
		q := Qualify(scope, n.Name)
		sym, ok := table[q]
		if !ok {
			sym = &Symbol{Name: q}
			table[q] = sym
		}
		sym.Decls = append(sym.Decls, n)
		sym.Docs = append(sym.Docs, n.Doc)
		x.byNode[n] = sym
		if n.Kind == KindNamespace {
			x.add(q, file, n.Children)
		}
	}
}

// Qualify joins a namespace scope and a name.
func Qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

// Resolve looks the reference up from its own scope outwards.
func (x *Index) Resolve(ref TypeRef) *Symbol {
	if ref.Name == "" || ref.Bound {
		return nil
	}
	local := x.local[ref.File]
	scope := ref.Scope
	for {
		q := Qualify(scope, ref.Name)
		if sym, ok := local[q]; ok {
			return sym
		}
		if sym, ok := x.symbols[q]; ok {
			return sym
		}
		if scope == "" {
			return nil
		}
		if i := strings.LastIndexByte(scope, '.'); i >= 0 {
			scope = scope[:i]
		} else {
			scope = ""
		}
	}
}

// Lookup returns the shared symbol with the given qualified name.
func (x *Index) Lookup(name string) *Symbol {
	return x.symbols[name]
}

// SymbolOf returns the symbol a declaration node was indexed under.
func (x *Index) SymbolOf(n *Node) *Symbol {
	return x.byNode[n]
}

func (x *Index) DeclarationsOf(sym *Symbol) []*Node {
	if sym == nil {
		return nil
	}
	return sym.Decls
}

// ExportsOf walks tree and returns the symbols of exported declarations,
// including exported members of exported namespaces.
func (x *Index) ExportsOf(tree *Tree) []*Symbol {
	seen := make(map[*Symbol]bool)
	var out []*Symbol
	var walk func(scope string, decls []*Node)
	walk = func(scope string, decls []*Node) {
		for _, n := range decls {
			if n.Kind == KindEmpty || !n.Exported || n.Name == "" {
				continue
			}
			sym := x.byNode[n]
			if sym == nil {
				sym = x.symbols[Qualify(scope, n.Name)]
			}
			if sym != nil && !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
			if n.Kind == KindNamespace {
				walk(Qualify(scope, n.Name), n.Children)
			}
		}
	}
	walk("", tree.Decls)
	return out
}

func (x *Index) MembersOf(sym *Symbol) []Member {
	if sym == nil {
		return nil
	}
	var out []Member
	for _, n := range sym.Decls {
		if n.Kind.HasMembers() {
			out = append(out, n.Members...)
		}
	}
	return out
}
