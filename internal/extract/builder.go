// Package extract builds declaration trees from TypeScript source with
// tree-sitter. It understands the declaration forms a compiler emits into
// .d.ts files (classes, interfaces, functions, type aliases, enums,
// variables and namespaces, with their export and declare wrappers) and
// records every named type reference with its span so later passes can
// rewrite references without re-parsing.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/narrow/internal/decl"
)

// Build parses the file at path and returns its declaration tree together
// with an Index answering symbol questions about it.
func Build(ctx context.Context, path string) (*decl.Tree, *decl.Index, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	tree, err := BuildSource(ctx, path, src)
	if err != nil {
		return nil, nil, err
	}
	return tree, decl.NewIndex(tree), nil
}

// BuildFiles parses every path and returns one tree per file, in order,
// plus a single Index spanning all of them.
func BuildFiles(ctx context.Context, paths []string) ([]*decl.Tree, *decl.Index, error) {
	trees := make([]*decl.Tree, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("extract: read %s: %w", path, err)
		}
		tree, err := BuildSource(ctx, path, src)
		if err != nil {
			return nil, nil, err
		}
		trees = append(trees, tree)
	}
	return trees, decl.NewIndex(trees...), nil
}

// BuildSource parses src as the contents of path. The path's extension
// selects the grammar. Syntax errors are reported as *decl.ParseError.
func BuildSource(ctx context.Context, path string, src []byte) (*decl.Tree, error) {
	dialect, ok := DialectForFile(path)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported file type %s", path)
	}
	lang, _ := GrammarForDialect(dialect)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	st, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("extract: tree-sitter parse failed: %w", err)
	}
	defer st.Close()

	b := &builder{path: path, src: src}
	root := st.RootNode()
	if root.HasError() {
		return nil, b.parseError(root)
	}

	tree := &decl.Tree{Path: path}
	b.tree = tree
	tree.Decls = b.statements(root, "", false)
	return tree, nil
}

type builder struct {
	path string
	src  []byte
	tree *decl.Tree
}

// block accumulates the declarations of one statement list.
type block struct {
	decls []*decl.Node
	// exports maps local names named by export clauses to the exported
	// name: the same name, an alias, "default" or "=" for export
	// assignments.
	exports  map[string]string
	explicit bool
}

func (b *builder) text(n *sitter.Node) string {
	return n.Content(b.src)
}

func (b *builder) pos(n *sitter.Node) decl.Pos {
	p := n.StartPoint()
	return decl.Pos{File: b.path, Line: int(p.Row) + 1, Col: int(p.Column) + 1}
}

func (b *builder) parseError(root *sitter.Node) error {
	n := firstError(root)
	if n == nil {
		n = root
	}
	msg := "syntax error"
	switch {
	case n.IsMissing():
		msg = fmt.Sprintf("missing %s", n.Type())
	case n.Type() == "ERROR":
		snippet := b.text(n)
		if i := strings.IndexByte(snippet, '\n'); i >= 0 {
			snippet = snippet[:i]
		}
		snippet = clip(snippet, 40)
		msg = fmt.Sprintf("unexpected %q", snippet)
	}
	p := b.pos(n)
	return &decl.ParseError{Path: b.path, Line: p.Line, Col: p.Col, Message: msg}
}

// clip shortens s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return nil
}

// statements builds the declarations of a program or namespace body. Inside
// an ambient namespace without any export statement every declaration is
// implicitly exported.
func (b *builder) statements(parent *sitter.Node, scope string, ambient bool) []*decl.Node {
	blk := &block{exports: make(map[string]string)}
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		b.statement(blk, parent.NamedChild(i), scope, false, ambient)
	}

	for _, n := range blk.decls {
		if alias, ok := blk.exports[n.Name]; ok && n.Name != "" {
			n.Exported = true
			if alias != n.Name {
				n.ExportedAs = alias
			}
		}
	}
	if scope != "" && ambient && !blk.explicit {
		for _, n := range blk.decls {
			n.Exported = true
		}
	}
	return blk.decls
}

func (b *builder) statement(blk *block, n *sitter.Node, scope string, exported, declare bool) {
	top := scope == ""
	switch n.Type() {
	case "comment":
		if top && strings.HasPrefix(b.text(n), "///") {
			b.tree.Imports = append(b.tree.Imports, b.text(n))
		}
	case "import_statement", "import_alias":
		if top {
			b.tree.Imports = append(b.tree.Imports, b.wrapperText(n))
		}
	case "export_statement":
		blk.explicit = true
		b.exportStatement(blk, n, scope, declare)
	case "ambient_declaration":
		if hasChild(n, "global") {
			if top {
				b.tree.Passthrough = append(b.tree.Passthrough, b.text(n))
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			b.statement(blk, n.NamedChild(i), scope, exported, true)
		}
	case "expression_statement":
		if c := n.NamedChild(0); c != nil && (c.Type() == "internal_module" || c.Type() == "module") {
			b.statement(blk, c, scope, exported, declare)
		}
	case "internal_module", "module":
		nameNode := n.NamedChild(0)
		body := childOfType(n, "statement_block")
		if nameNode == nil || nameNode.Type() == "string" || body == nil {
			// Ambient external modules are kept verbatim.
			if top {
				b.tree.Passthrough = append(b.tree.Passthrough, b.wrapperText(n))
			}
			return
		}
		keyword := "namespace"
		if n.Type() == "module" {
			keyword = "module"
		}
		name := b.text(nameNode)
		blk.add(&decl.Node{
			Kind:     decl.KindNamespace,
			Name:     name,
			Keyword:  keyword,
			Exported: exported,
			Declare:  declare,
			Doc:      b.docFor(n),
			Children: b.statements(body, decl.Qualify(scope, name), declare || b.declarationFile()),
			Pos:      b.pos(n),
		})
	default:
		for _, node := range b.declaration(n, scope) {
			node.Exported = node.Exported || exported
			node.Declare = node.Declare || declare
			blk.add(node)
		}
	}
}

// declarationFile reports whether the input is a .d.ts style file, where
// every namespace is ambient.
func (b *builder) declarationFile() bool {
	p := strings.ToLower(b.path)
	return strings.HasSuffix(p, ".d.ts") || strings.HasSuffix(p, ".d.mts") || strings.HasSuffix(p, ".d.cts")
}

func (blk *block) add(n *decl.Node) {
	blk.decls = append(blk.decls, n)
}

// wrapperText returns the source of n including the export and declare
// wrappers around it.
func (b *builder) wrapperText(n *sitter.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "export_statement", "ambient_declaration", "expression_statement":
			n = p
			continue
		}
		break
	}
	return b.text(n)
}

func (b *builder) exportStatement(blk *block, n *sitter.Node, scope string, declare bool) {
	var isDefault, assign, source bool
	var clause, value *sitter.Node
	var decls []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "default":
			isDefault = true
		case "=":
			assign = true
		case "from", "string", "*", "namespace_export":
			source = true
		case "export_clause":
			clause = c
		case "identifier":
			value = c
		case "comment", "decorator":
		default:
			if c.IsNamed() {
				decls = append(decls, c)
			}
		}
	}

	switch {
	case source || (clause == nil && len(decls) == 0 && (value == nil || !(assign || isDefault))):
		// Re-exports from other modules and `export as namespace`.
		if scope == "" {
			b.tree.Passthrough = append(b.tree.Passthrough, b.text(n))
		}
	case clause != nil:
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" || spec.NamedChildCount() == 0 {
				continue
			}
			local := b.text(spec.NamedChild(0))
			alias := local
			if spec.NamedChildCount() > 1 {
				alias = b.text(spec.NamedChild(1))
			}
			blk.exports[local] = alias
		}
	case value != nil && (assign || isDefault):
		alias := "default"
		if assign {
			alias = "="
		}
		blk.exports[b.text(value)] = alias
	default:
		for _, d := range decls {
			before := len(blk.decls)
			b.statement(blk, d, scope, true, declare)
			if isDefault {
				for _, node := range blk.decls[before:] {
					node.Default = true
				}
			}
		}
	}
}

// declaration builds the nodes for a single declaration statement. Variable
// statements yield one node per declarator.
func (b *builder) declaration(n *sitter.Node, scope string) []*decl.Node {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		return []*decl.Node{b.class(n, scope)}
	case "interface_declaration":
		return []*decl.Node{b.iface(n, scope)}
	case "function_signature", "function_declaration", "generator_function_declaration":
		return []*decl.Node{b.function(n, scope)}
	case "type_alias_declaration":
		return []*decl.Node{b.typeAlias(n, scope)}
	case "enum_declaration":
		return []*decl.Node{b.enum(n)}
	case "lexical_declaration", "variable_declaration":
		return b.variables(n, scope)
	}
	return nil
}

func (b *builder) class(n *sitter.Node, scope string) *decl.Node {
	node := &decl.Node{Kind: decl.KindClass, Doc: b.docFor(n), Pos: b.pos(n)}
	bound := map[string]bool{}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "abstract":
			node.Abstract = true
		case "type_identifier", "identifier":
			if node.Name == "" {
				node.Name = b.text(c)
			}
		case "type_parameters":
			node.TypeParams, bound = b.typeParams(c, scope, bound)
		case "class_heritage":
			node.Heritage = b.classHeritage(c, scope, bound)
		case "class_body":
			node.Members = b.members(c, scope, bound)
		}
	}
	return node
}

func (b *builder) iface(n *sitter.Node, scope string) *decl.Node {
	node := &decl.Node{Kind: decl.KindInterface, Doc: b.docFor(n), Pos: b.pos(n)}
	bound := map[string]bool{}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_identifier":
			if node.Name == "" {
				node.Name = b.text(c)
			}
		case "type_parameters":
			node.TypeParams, bound = b.typeParams(c, scope, bound)
		case "extends_type_clause":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				t := c.NamedChild(j)
				if t.Type() == "comment" {
					continue
				}
				node.Heritage = append(node.Heritage, decl.HeritageEdge{
					Kind:   decl.Extends,
					Target: b.typeExpr(t, scope, bound),
				})
			}
		case "object_type", "interface_body":
			node.Members = b.members(c, scope, bound)
		}
	}
	return node
}

// classHeritage reads `extends Base<T> implements A, B`. The extends value
// is an expression; its text up to the end of any type arguments forms the
// edge target.
func (b *builder) classHeritage(n *sitter.Node, scope string, bound map[string]bool) []decl.HeritageEdge {
	var edges []decl.HeritageEdge
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "extends_clause":
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				value := clause.NamedChild(j)
				if value.Type() == "type_arguments" || value.Type() == "comment" {
					continue
				}
				var args *sitter.Node
				if j+1 < int(clause.NamedChildCount()) && clause.NamedChild(j+1).Type() == "type_arguments" {
					args = clause.NamedChild(j + 1)
				}
				edges = append(edges, decl.HeritageEdge{
					Kind:   decl.Extends,
					Target: b.extendsTarget(value, args, scope, bound),
				})
			}
		case "implements_clause":
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				t := clause.NamedChild(j)
				if t.Type() == "comment" {
					continue
				}
				edges = append(edges, decl.HeritageEdge{
					Kind:   decl.Implements,
					Target: b.typeExpr(t, scope, bound),
				})
			}
		}
	}
	return edges
}

func (b *builder) extendsTarget(value, args *sitter.Node, scope string, bound map[string]bool) *decl.TypeExpr {
	start, end := value.StartByte(), value.EndByte()
	if args != nil {
		end = args.EndByte()
	}
	expr := &decl.TypeExpr{Text: string(b.src[start:end])}

	head := value
	if head.Type() != "identifier" && head.Type() != "member_expression" {
		// Mixin calls and other expressions: the callee names the target.
		if c := childOfType(value, "identifier"); c != nil {
			head = c
		}
	}
	expr.Refs = append(expr.Refs, b.ref(head, start, b.text(head), scope, false))
	if args != nil {
		b.collect(args, start, scope, b.binders(args, bound), &expr.Refs)
	}
	return expr
}

func (b *builder) members(body *sitter.Node, scope string, bound map[string]bool) []decl.Member {
	var out []decl.Member
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if m, ok := b.member(body.NamedChild(i), scope, bound); ok {
			out = append(out, m)
		}
	}
	return out
}

func (b *builder) member(n *sitter.Node, scope string, bound map[string]bool) (decl.Member, bool) {
	m := decl.Member{Doc: b.memberDoc(n), Pos: b.pos(n)}
	switch n.Type() {
	case "method_signature", "method_definition", "abstract_method_signature":
		m.Kind = decl.MemberMethod
		b.memberHead(n, &m)
		m.Sig = b.signature(n, scope, bound)
		switch {
		case m.Name == "constructor":
			m.Kind = decl.MemberConstructor
			m.Name = ""
		case m.Accessor != "":
			m.Kind = decl.MemberAccessor
		}
	case "public_field_definition", "property_signature":
		m.Kind = decl.MemberProperty
		b.memberHead(n, &m)
		m.Type = b.annotation(n, scope, bound)
	case "call_signature":
		m.Kind = decl.MemberCall
		m.Sig = b.signature(n, scope, bound)
	case "construct_signature":
		m.Kind = decl.MemberConstructor
		m.Sig = b.signature(n, scope, bound)
	case "index_signature":
		m.Kind = decl.MemberIndex
		b.indexSignature(n, &m, scope, bound)
	default:
		return m, false
	}
	return m, true
}

// memberHead reads modifiers and the member name.
func (b *builder) memberHead(n *sitter.Node, m *decl.Member) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "accessibility_modifier":
			m.Visibility = decl.Visibility(b.text(c))
		case "static":
			m.Static = true
		case "readonly":
			m.Readonly = true
		case "abstract":
			m.Abstract = true
		case "get", "set":
			m.Accessor = c.Type()
		case "?":
			m.Optional = true
		case "property_identifier", "private_property_identifier", "string", "number", "computed_property_name":
			if m.Name == "" {
				m.Name = b.text(c)
			}
		}
	}
}

func (b *builder) indexSignature(n *sitter.Node, m *decl.Member, scope string, bound map[string]bool) {
	key := decl.Param{}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "readonly":
			m.Readonly = true
		case "identifier":
			if key.Name == "" {
				key.Name = b.text(c)
			}
		case "type_annotation":
			m.Type = b.typeExpr(c.NamedChild(0), scope, bound)
		default:
			if c.IsNamed() && c.Type() != "comment" && key.Name != "" && key.Type == nil {
				key.Type = b.typeExpr(c, scope, bound)
			}
		}
	}
	m.Sig.Params = []decl.Param{key}
}

// signature reads type parameters, parameters and return type of a
// callable node.
func (b *builder) signature(n *sitter.Node, scope string, bound map[string]bool) decl.Signature {
	var sig decl.Signature
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "type_parameters":
			sig.TypeParams, bound = b.typeParams(c, scope, bound)
		case "formal_parameters":
			sig.Params = b.params(c, scope, bound)
		case "type_annotation", "type_predicate_annotation", "asserts_annotation":
			sig.Return = b.typeExpr(c.NamedChild(0), scope, bound)
		}
	}
	return sig
}

func (b *builder) params(n *sitter.Node, scope string, bound map[string]bool) []decl.Param {
	var out []decl.Param
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "required_parameter" && c.Type() != "optional_parameter" {
			continue
		}
		p := decl.Param{Optional: c.Type() == "optional_parameter"}
		for j := 0; j < int(c.ChildCount()); j++ {
			part := c.Child(j)
			switch part.Type() {
			case "identifier", "this", "object_pattern", "array_pattern":
				if p.Name == "" {
					p.Name = b.text(part)
				}
			case "rest_pattern":
				p.Rest = true
				if id := part.NamedChild(0); id != nil {
					p.Name = b.text(id)
				}
			case "?":
				p.Optional = true
			case "type_annotation":
				p.Type = b.typeExpr(part.NamedChild(0), scope, bound)
			}
		}
		out = append(out, p)
	}
	return out
}

// typeParams reads a type parameter list and returns it with the bound set
// extended by its names. Constraints and defaults may refer to any name of
// the list.
func (b *builder) typeParams(n *sitter.Node, scope string, bound map[string]bool) ([]decl.TypeParam, map[string]bool) {
	inner := make(map[string]bool, len(bound))
	for k := range bound {
		inner[k] = true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if id := childOfType(n.NamedChild(i), "type_identifier"); id != nil {
			inner[b.text(id)] = true
		}
	}

	var out []decl.TypeParam
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		var tp decl.TypeParam
		for j := 0; j < int(c.NamedChildCount()); j++ {
			part := c.NamedChild(j)
			switch part.Type() {
			case "type_identifier":
				if tp.Name == "" {
					tp.Name = b.text(part)
				}
			case "constraint":
				tp.Constraint = b.typeExpr(part.NamedChild(0), scope, inner)
			case "default_type":
				tp.Default = b.typeExpr(part.NamedChild(0), scope, inner)
			}
		}
		out = append(out, tp)
	}
	return out, inner
}

func (b *builder) function(n *sitter.Node, scope string) *decl.Node {
	node := &decl.Node{Kind: decl.KindFunction, Doc: b.docFor(n), Pos: b.pos(n)}
	if id := childOfType(n, "identifier"); id != nil {
		node.Name = b.text(id)
	}
	sig := b.signature(n, scope, nil)
	node.Sig = &sig
	return node
}

func (b *builder) typeAlias(n *sitter.Node, scope string) *decl.Node {
	node := &decl.Node{Kind: decl.KindTypeAlias, Doc: b.docFor(n), Pos: b.pos(n)}
	bound := map[string]bool{}
	afterEq := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case c.Type() == "=":
			afterEq = true
		case afterEq && c.IsNamed() && node.Type == nil:
			node.Type = b.typeExpr(c, scope, bound)
		case c.Type() == "type_identifier" && node.Name == "":
			node.Name = b.text(c)
		case c.Type() == "type_parameters":
			node.TypeParams, bound = b.typeParams(c, scope, bound)
		}
	}
	return node
}

func (b *builder) enum(n *sitter.Node) *decl.Node {
	node := &decl.Node{Kind: decl.KindEnum, Doc: b.docFor(n), Pos: b.pos(n)}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "const":
			node.Const = true
		case "identifier":
			node.Name = b.text(c)
		case "enum_body":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				e := c.NamedChild(j)
				switch e.Type() {
				case "property_identifier", "string":
					node.Enum = append(node.Enum, decl.EnumMember{Name: b.text(e), Doc: b.memberDoc(e)})
				case "enum_assignment":
					em := decl.EnumMember{Doc: b.memberDoc(e)}
					if k := e.NamedChild(0); k != nil {
						em.Name = b.text(k)
					}
					if v := e.NamedChild(1); v != nil {
						em.Value = b.text(v)
					}
					node.Enum = append(node.Enum, em)
				}
			}
		}
	}
	return node
}

func (b *builder) variables(n *sitter.Node, scope string) []*decl.Node {
	keyword := "var"
	if first := n.Child(0); first != nil && n.Type() == "lexical_declaration" {
		keyword = b.text(first)
	}
	doc := b.docFor(n)
	var out []*decl.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" || c.NamedChildCount() == 0 {
			continue
		}
		node := &decl.Node{
			Kind:    decl.KindVariable,
			Name:    b.text(c.NamedChild(0)),
			Keyword: keyword,
			Type:    b.annotation(c, scope, nil),
			Pos:     b.pos(c),
		}
		if len(out) == 0 {
			node.Doc = doc
		}
		out = append(out, node)
	}
	return out
}

// annotation returns the type written in n's type_annotation child.
func (b *builder) annotation(n *sitter.Node, scope string, bound map[string]bool) *decl.TypeExpr {
	if c := childOfType(n, "type_annotation"); c != nil {
		return b.typeExpr(c.NamedChild(0), scope, bound)
	}
	return nil
}

// docFor returns the JSDoc comment directly preceding a declaration,
// looking through export and declare wrappers.
func (b *builder) docFor(n *sitter.Node) decl.Doc {
	for p := n; p != nil; p = p.Parent() {
		if prev := p.PrevNamedSibling(); prev != nil {
			if prev.Type() == "comment" {
				return decl.ParseDoc(b.text(prev))
			}
			return decl.Doc{}
		}
		parent := p.Parent()
		if parent == nil {
			break
		}
		switch parent.Type() {
		case "export_statement", "ambient_declaration", "expression_statement":
			continue
		}
		break
	}
	return decl.Doc{}
}

func (b *builder) memberDoc(n *sitter.Node) decl.Doc {
	if prev := n.PrevNamedSibling(); prev != nil && prev.Type() == "comment" {
		return decl.ParseDoc(b.text(prev))
	}
	return decl.Doc{}
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func hasChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}
