// Package decl defines the typed declaration tree the pruner operates on and
// the resolver capability it consults for symbol identity.
//
// A Tree is a flat, ordered list of top-level declaration Nodes. Nodes are a
// closed tagged variant: Kind selects which fields are meaningful. Type
// expressions keep their source text together with the byte spans of every
// named type reference inside them, so references can be rewritten without
// re-parsing.
package decl

// Kind tags a declaration node.
type Kind int

const (
	// KindEmpty is the placeholder left where a declaration was removed.
	KindEmpty Kind = iota
	KindClass
	KindInterface
	KindFunction
	KindTypeAlias
	KindNamespace
	KindEnum
	KindVariable
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindClass:     "class",
	KindInterface: "interface",
	KindFunction:  "function",
	KindTypeAlias: "type",
	KindNamespace: "namespace",
	KindEnum:      "enum",
	KindVariable:  "variable",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// HasMembers reports whether nodes of this kind carry a member list and
// heritage clauses.
func (k Kind) HasMembers() bool {
	return k == KindClass || k == KindInterface
}

// MemberKind tags a class or interface member.
type MemberKind int

const (
	MemberProperty MemberKind = iota
	MemberMethod
	MemberAccessor
	MemberConstructor
	MemberIndex // [key: K]: V
	MemberCall  // (params): R on interfaces
)

var memberKindNames = [...]string{
	MemberProperty:    "property",
	MemberMethod:      "method",
	MemberAccessor:    "accessor",
	MemberConstructor: "constructor",
	MemberIndex:       "index",
	MemberCall:        "call",
}

func (k MemberKind) String() string {
	if int(k) < len(memberKindNames) {
		return memberKindNames[k]
	}
	return "unknown"
}

// Visibility is a member accessibility modifier. The zero value means none
// was written.
type Visibility string

const (
	VisibilityNone      Visibility = ""
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
)

// Valid reports whether v is one of the known modifiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityNone, VisibilityPublic, VisibilityProtected, VisibilityPrivate:
		return true
	}
	return false
}

// HeritageKind distinguishes extends from implements clauses.
type HeritageKind int

const (
	Extends HeritageKind = iota
	Implements
)

func (k HeritageKind) String() string {
	if k == Implements {
		return "implements"
	}
	return "extends"
}

// Pos is a 1-based source position.
type Pos struct {
	File string
	Line int
	Col  int
}

// Tree is a declaration tree for one or more source files.
type Tree struct {
	Path string
	// Imports holds import statements verbatim; imported names are outside
	// the tree.
	Imports []string
	Decls   []*Node
	// Passthrough holds statements emitted verbatim after the declarations
	// (re-exports from other modules, export assignments).
	Passthrough []string
}

// IsModule reports whether t is an ES module rather than a global script:
// it imports, exports or re-exports something at top level.
func (t *Tree) IsModule() bool {
	if len(t.Imports) > 0 || len(t.Passthrough) > 0 {
		return true
	}
	for _, n := range t.Decls {
		if n.Exported {
			return true
		}
	}
	return false
}

// Node is a declaration. Which fields are meaningful depends on Kind.
type Node struct {
	Kind       Kind
	Name       string
	Exported   bool
	ExportedAs string // set when exported under a different name
	Default    bool
	Declare    bool
	Abstract   bool
	Const      bool   // const enum
	Keyword    string // const/let/var for variables, namespace/module for namespaces
	Doc        Doc
	TypeParams []TypeParam
	Heritage   []HeritageEdge // class, interface
	Members    []Member       // class, interface
	Sig        *Signature     // function
	Type       *TypeExpr      // type alias value, variable type
	Enum       []EnumMember
	Children   []*Node // namespace
	Pos        Pos
}

// Placeholder returns the empty node standing in for n.
func Placeholder(n *Node) *Node {
	return &Node{Kind: KindEmpty, Pos: n.Pos}
}

// Clone returns a shallow copy of n whose slices are safe to modify without
// affecting n. Type expressions are shared; they are never mutated in place.
func (n *Node) Clone() *Node {
	c := *n
	c.TypeParams = append([]TypeParam(nil), n.TypeParams...)
	c.Heritage = append([]HeritageEdge(nil), n.Heritage...)
	c.Members = append([]Member(nil), n.Members...)
	c.Enum = append([]EnumMember(nil), n.Enum...)
	c.Children = append([]*Node(nil), n.Children...)
	if n.Sig != nil {
		sig := n.Sig.Clone()
		c.Sig = &sig
	}
	return &c
}

// TypeParam is a generic parameter with optional constraint and default.
type TypeParam struct {
	Name       string
	Constraint *TypeExpr
	Default    *TypeExpr
}

// HeritageEdge is an extends or implements relationship. The target's first
// reference is the supertype; later references are its type arguments.
type HeritageEdge struct {
	Kind   HeritageKind
	Target *TypeExpr
}

// Head returns the reference naming the supertype.
func (e HeritageEdge) Head() TypeRef {
	if e.Target == nil || len(e.Target.Refs) == 0 {
		return TypeRef{}
	}
	return e.Target.Refs[0]
}

// Member is a class or interface member.
type Member struct {
	Kind       MemberKind
	Name       string
	Doc        Doc
	Visibility Visibility
	Static     bool
	Readonly   bool
	Optional   bool
	Abstract   bool
	Accessor   string    // "get" or "set"
	Type       *TypeExpr // property and index value type
	Sig        Signature // method, accessor, constructor, call and index key
	Pos        Pos
}

// Signature is a callable shape.
type Signature struct {
	TypeParams []TypeParam
	Params     []Param
	Return     *TypeExpr
}

// Clone copies the slices of s.
func (s Signature) Clone() Signature {
	s.TypeParams = append([]TypeParam(nil), s.TypeParams...)
	s.Params = append([]Param(nil), s.Params...)
	return s
}

// Param is a formal parameter.
type Param struct {
	Name     string
	Type     *TypeExpr
	Optional bool
	Rest     bool
}

// EnumMember is one enum constant.
type EnumMember struct {
	Name  string
	Value string
	Doc   Doc
}
