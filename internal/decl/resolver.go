package decl

// Symbol is the resolver's identity for a named entity. One symbol may have
// several declarations (overloads, merged interfaces) in source order.
type Symbol struct {
	// Name is the qualified name, e.g. "NS.Inner".
	Name  string
	Decls []*Node
	// Docs is the per-declaration documentation, parallel to Decls.
	Docs []Doc
}

// Resolver answers symbol questions against the original, unpruned tree.
// It must stay valid for the whole prune call even as stages build new
// trees. Implementations are not required to be safe for concurrent use.
type Resolver interface {
	// Resolve returns the symbol a reference points to, or nil when it
	// names something outside the tree (built-ins, imports, type
	// parameters).
	Resolve(ref TypeRef) *Symbol
	DeclarationsOf(sym *Symbol) []*Node
	// ExportsOf returns the exported symbols of tree in declaration order.
	ExportsOf(tree *Tree) []*Symbol
	// MembersOf returns the own members of every declaration of sym.
	MembersOf(sym *Symbol) []Member
}

// MemberPolicy decides whether a member is hidden beyond the naming
// convention.
type MemberPolicy interface {
	Hidden(owner *Node, m *Member) (bool, error)
}
