// Package printer renders declaration trees as TypeScript declaration
// source. Output is normalized rather than faithful: members are indented
// four spaces, "public" is omitted and empty placeholders print nothing.
// Layout beyond that is left to an external formatter.
package printer

import (
	"strings"

	"github.com/jward/narrow/internal/decl"
)

const indentUnit = "    "

// Print renders t: imports, declarations, then export lists and verbatim
// statements.
func Print(t *decl.Tree) string {
	p := &printer{}
	for _, imp := range t.Imports {
		p.line(0, imp)
	}
	if len(t.Imports) > 0 {
		p.b.WriteByte('\n')
	}

	first := true
	for _, n := range t.Decls {
		if n.Kind == decl.KindEmpty {
			continue
		}
		if !first {
			p.b.WriteByte('\n')
		}
		first = false
		p.node(n, 0, true)
	}

	tail := exportStatements(t.Decls)
	tail = append(tail, t.Passthrough...)
	if len(tail) > 0 && !first {
		p.b.WriteByte('\n')
	}
	for _, s := range tail {
		p.line(0, s)
	}
	return p.b.String()
}

// PrintNode renders a single declaration at module level.
func PrintNode(n *decl.Node) string {
	p := &printer{}
	p.node(n, 0, true)
	return p.b.String()
}

// PrintMember renders one member of a class or interface without its
// documentation or trailing semicolon.
func PrintMember(m decl.Member, owner decl.Kind) string {
	return member(m, owner)
}

// exportStatements renders the export lists for declarations exported
// under another name, one statement per distinct name.
func exportStatements(decls []*decl.Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range decls {
		if n.Kind == decl.KindEmpty || n.ExportedAs == "" || seen[n.Name] {
			continue
		}
		seen[n.Name] = true
		if n.ExportedAs == "=" {
			out = append(out, "export = "+n.Name+";")
			continue
		}
		out = append(out, "export { "+n.Name+" as "+n.ExportedAs+" };")
	}
	return out
}

type printer struct {
	b strings.Builder
}

func (p *printer) line(depth int, s string) {
	for i := 0; i < depth; i++ {
		p.b.WriteString(indentUnit)
	}
	p.b.WriteString(s)
	p.b.WriteByte('\n')
}

// doc writes a documentation comment re-indented to depth.
func (p *printer) doc(depth int, d decl.Doc) {
	if d.Empty() {
		return
	}
	for i, l := range strings.Split(d.Raw, "\n") {
		l = strings.TrimLeft(l, " \t")
		if i > 0 && strings.HasPrefix(l, "*") {
			l = " " + l
		}
		p.line(depth, l)
	}
}

func modifiers(n *decl.Node, top bool) string {
	var b strings.Builder
	if n.Exported && n.ExportedAs == "" {
		b.WriteString("export ")
	}
	if n.Default {
		b.WriteString("default ")
	} else if n.Declare && top {
		b.WriteString("declare ")
	}
	return b.String()
}

func (p *printer) node(n *decl.Node, depth int, top bool) {
	p.doc(depth, n.Doc)
	mods := modifiers(n, top)
	switch n.Kind {
	case decl.KindClass, decl.KindInterface:
		p.typeDecl(n, depth, mods)
	case decl.KindFunction:
		sig := decl.Signature{}
		if n.Sig != nil {
			sig = *n.Sig
		}
		p.line(depth, mods+"function "+n.Name+signature(sig, true)+";")
	case decl.KindTypeAlias:
		p.line(depth, mods+"type "+n.Name+typeParams(n.TypeParams)+" = "+n.Type.String()+";")
	case decl.KindVariable:
		s := mods + n.Keyword + " " + n.Name
		if n.Type != nil {
			s += ": " + n.Type.String()
		}
		p.line(depth, s+";")
	case decl.KindEnum:
		head := mods
		if n.Const {
			head += "const "
		}
		p.line(depth, head+"enum "+n.Name+" {")
		for i, e := range n.Enum {
			p.doc(depth+1, e.Doc)
			s := e.Name
			if e.Value != "" {
				s += " = " + e.Value
			}
			if i < len(n.Enum)-1 {
				s += ","
			}
			p.line(depth+1, s)
		}
		p.line(depth, "}")
	case decl.KindNamespace:
		keyword := n.Keyword
		if keyword == "" {
			keyword = "namespace"
		}
		p.line(depth, mods+keyword+" "+n.Name+" {")
		for _, c := range n.Children {
			if c.Kind != decl.KindEmpty {
				p.node(c, depth+1, false)
			}
		}
		for _, s := range exportStatements(n.Children) {
			p.line(depth+1, s)
		}
		p.line(depth, "}")
	}
}

func (p *printer) typeDecl(n *decl.Node, depth int, mods string) {
	var head strings.Builder
	head.WriteString(mods)
	if n.Kind == decl.KindClass {
		if n.Abstract {
			head.WriteString("abstract ")
		}
		head.WriteString("class")
	} else {
		head.WriteString("interface")
	}
	if n.Name != "" {
		head.WriteString(" " + n.Name)
	}
	head.WriteString(typeParams(n.TypeParams))

	var extends, implements []string
	for _, e := range n.Heritage {
		if e.Kind == decl.Implements {
			implements = append(implements, e.Target.String())
		} else {
			extends = append(extends, e.Target.String())
		}
	}
	if len(extends) > 0 {
		head.WriteString(" extends " + strings.Join(extends, ", "))
	}
	if len(implements) > 0 {
		head.WriteString(" implements " + strings.Join(implements, ", "))
	}
	head.WriteString(" {")
	p.line(depth, head.String())
	for _, m := range n.Members {
		p.doc(depth+1, m.Doc)
		p.line(depth+1, member(m, n.Kind)+";")
	}
	p.line(depth, "}")
}

func member(m decl.Member, owner decl.Kind) string {
	var b strings.Builder
	if m.Visibility != decl.VisibilityNone && m.Visibility != decl.VisibilityPublic {
		b.WriteString(string(m.Visibility) + " ")
	}
	if m.Static {
		b.WriteString("static ")
	}
	if m.Abstract {
		b.WriteString("abstract ")
	}
	if m.Readonly {
		b.WriteString("readonly ")
	}

	switch m.Kind {
	case decl.MemberConstructor:
		if owner == decl.KindInterface {
			b.WriteString("new " + signature(m.Sig, true))
		} else {
			b.WriteString("constructor" + signature(m.Sig, false))
		}
	case decl.MemberIndex:
		b.WriteString("[")
		if len(m.Sig.Params) > 0 {
			b.WriteString(param(m.Sig.Params[0]))
		}
		b.WriteString("]: " + m.Type.String())
	case decl.MemberCall:
		b.WriteString(signature(m.Sig, true))
	case decl.MemberAccessor:
		b.WriteString(m.Accessor + " " + m.Name + signature(m.Sig, m.Accessor == "get"))
	case decl.MemberMethod:
		b.WriteString(m.Name)
		if m.Optional {
			b.WriteString("?")
		}
		b.WriteString(signature(m.Sig, true))
	default:
		b.WriteString(m.Name)
		if m.Optional {
			b.WriteString("?")
		}
		if m.Type != nil {
			b.WriteString(": " + m.Type.String())
		}
	}
	return b.String()
}

// signature renders "<T>(a: A, b?: B): R". The return annotation is
// omitted when withReturn is false or no return type was written.
func signature(sig decl.Signature, withReturn bool) string {
	var b strings.Builder
	b.WriteString(typeParams(sig.TypeParams))
	b.WriteString("(")
	for i, prm := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(param(prm))
	}
	b.WriteString(")")
	if withReturn && sig.Return != nil {
		b.WriteString(": " + sig.Return.String())
	}
	return b.String()
}

func param(prm decl.Param) string {
	s := prm.Name
	if prm.Rest {
		s = "..." + s
	}
	if prm.Optional {
		s += "?"
	}
	if prm.Type != nil {
		s += ": " + prm.Type.String()
	}
	return s
}

func typeParams(tps []decl.TypeParam) string {
	if len(tps) == 0 {
		return ""
	}
	parts := make([]string, len(tps))
	for i, tp := range tps {
		s := tp.Name
		if tp.Constraint != nil {
			s += " extends " + tp.Constraint.String()
		}
		if tp.Default != nil {
			s += " = " + tp.Default.String()
		}
		parts[i] = s
	}
	return "<" + strings.Join(parts, ", ") + ">"
}
