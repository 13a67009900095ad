package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/narrow/internal/decl"
)

// typeExpr captures the source text of a type node together with every
// named reference inside it. Spans are relative to the node's start. Names
// bound by an enclosing type parameter list, a mapped type or an infer
// clause are recorded as bound references.
func (b *builder) typeExpr(n *sitter.Node, scope string, bound map[string]bool) *decl.TypeExpr {
	if n == nil {
		return nil
	}
	expr := &decl.TypeExpr{Text: b.text(n)}
	b.collect(n, n.StartByte(), scope, b.binders(n, bound), &expr.Refs)
	return expr
}

// binders extends bound with the names introduced inside n itself.
func (b *builder) binders(n *sitter.Node, bound map[string]bool) map[string]bool {
	var local map[string]bool
	var walk func(c *sitter.Node)
	walk = func(c *sitter.Node) {
		switch c.Type() {
		case "infer_type", "mapped_type_clause":
			if id := childOfType(c, "type_identifier"); id != nil {
				if local == nil {
					local = make(map[string]bool, len(bound)+1)
					for k := range bound {
						local[k] = true
					}
				}
				local[b.text(id)] = true
			}
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			walk(c.NamedChild(i))
		}
	}
	walk(n)
	if local == nil {
		return bound
	}
	return local
}

func (b *builder) collect(n *sitter.Node, base uint32, scope string, bound map[string]bool, refs *[]decl.TypeRef) {
	switch n.Type() {
	case "type_identifier":
		name := b.text(n)
		*refs = append(*refs, b.ref(n, base, name, scope, bound[name]))
		return
	case "nested_type_identifier":
		*refs = append(*refs, b.ref(n, base, b.text(n), scope, false))
		return
	case "type_query":
		if c := n.NamedChild(0); c != nil {
			switch c.Type() {
			case "identifier", "member_expression", "nested_identifier":
				*refs = append(*refs, b.ref(c, base, b.text(c), scope, false))
				return
			}
		}
	case "predefined_type", "literal_type", "string", "number", "template_literal_type",
		"property_identifier", "this_type", "comment", "import":
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.collect(n.NamedChild(i), base, scope, bound, refs)
	}
}

func (b *builder) ref(n *sitter.Node, base uint32, name, scope string, bound bool) decl.TypeRef {
	return decl.TypeRef{
		Name:  name,
		Start: int(n.StartByte() - base),
		End:   int(n.EndByte() - base),
		Scope: scope,
		File:  b.path,
		Bound: bound,
	}
}
