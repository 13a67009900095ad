package narrow

import "github.com/jward/narrow/internal/decl"

// visitFunc maps one declaration to its replacement. scope is the qualified
// name of the enclosing namespace, empty at module level. Returning n itself
// keeps the node; visitors never modify their input.
type visitFunc func(scope string, n *decl.Node) (*decl.Node, error)

// mapTree applies fn to every declaration of t in pre-order and returns the
// resulting tree. Placeholders are passed through without a visit. When fn
// keeps a namespace, its children are visited in turn.
func mapTree(t *decl.Tree, fn visitFunc) (*decl.Tree, error) {
	decls, err := mapDecls("", t.Decls, fn)
	if err != nil {
		return nil, err
	}
	out := *t
	out.Decls = decls
	return &out, nil
}

func mapDecls(scope string, decls []*decl.Node, fn visitFunc) ([]*decl.Node, error) {
	out := make([]*decl.Node, len(decls))
	for i, n := range decls {
		if n.Kind == decl.KindEmpty {
			out[i] = n
			continue
		}
		m, err := fn(scope, n)
		if err != nil {
			return nil, err
		}
		if m.Kind == decl.KindNamespace && len(m.Children) > 0 {
			children, err := mapDecls(decl.Qualify(scope, m.Name), m.Children, fn)
			if err != nil {
				return nil, err
			}
			if m == n {
				m = m.Clone()
			}
			m.Children = children
		}
		out[i] = m
	}
	return out, nil
}

// walkTree calls fn for every non-empty declaration of t in pre-order.
func walkTree(t *decl.Tree, fn func(scope string, n *decl.Node)) {
	var walk func(scope string, decls []*decl.Node)
	walk = func(scope string, decls []*decl.Node) {
		for _, n := range decls {
			if n.Kind == decl.KindEmpty {
				continue
			}
			fn(scope, n)
			if n.Kind == decl.KindNamespace {
				walk(decl.Qualify(scope, n.Name), n.Children)
			}
		}
	}
	walk("", t.Decls)
}
