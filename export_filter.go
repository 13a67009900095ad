package narrow

import "github.com/jward/narrow/internal/decl"

// filterExports replaces every declaration without an export marker by an
// empty placeholder at the same position. Exported namespaces are filtered
// recursively. A tree with no exports yields an all-placeholder tree.
func (p *pruner) filterExports(t *decl.Tree) *decl.Tree {
	out, _ := mapTree(t, func(_ string, n *decl.Node) (*decl.Node, error) {
		if !n.Exported {
			return decl.Placeholder(n), nil
		}
		return n, nil
	})
	return out
}
