package narrow

import (
	"strings"

	"github.com/jward/narrow/internal/decl"
)

// filterMembers drops hidden members from classes and interfaces and
// narrows constructors carrying the hide tag. A declaration whose members
// are all removed stays in the tree with an empty body.
func (p *pruner) filterMembers(t *decl.Tree) (*decl.Tree, error) {
	return mapTree(t, func(_ string, n *decl.Node) (*decl.Node, error) {
		if !n.Kind.HasMembers() {
			return n, nil
		}
		c := n.Clone()
		c.Members = c.Members[:0]
		for i := range n.Members {
			m := n.Members[i]
			if m.Kind == decl.MemberConstructor {
				if n.Kind == decl.KindClass {
					m = p.narrowConstructor(m)
				}
				c.Members = append(c.Members, m)
				continue
			}
			hide, err := p.hidden(n, &m)
			if err != nil {
				return nil, err
			}
			if !hide {
				c.Members = append(c.Members, m)
			}
		}
		return c, nil
	})
}

// narrowConstructor returns the parameterless private or protected variant
// of a constructor documented with the hide tag, or m unchanged. The hide
// tag and the now stale @param tags are removed from its documentation.
func (p *pruner) narrowConstructor(m decl.Member) decl.Member {
	payload, ok := m.Doc.Tag(p.cfg.HideTag)
	if !ok {
		return m
	}
	vis := p.cfg.HiddenVisibility
	if p.cfg.AltMarker != "" && strings.TrimSpace(payload) == p.cfg.AltMarker {
		vis = p.cfg.AltVisibility
	}
	return decl.Member{
		Kind:       decl.MemberConstructor,
		Doc:        m.Doc.Without(p.cfg.HideTag, "param"),
		Visibility: vis,
		Pos:        m.Pos,
	}
}
