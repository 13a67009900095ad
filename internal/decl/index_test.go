package decl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_ResolveWalksScopesOutward(t *testing.T) {
	t.Parallel()
	inner := &Node{Kind: KindInterface, Name: "Options", Exported: true}
	outer := &Node{Kind: KindInterface, Name: "Options"}
	other := &Node{Kind: KindClass, Name: "Other"}
	ns := &Node{Kind: KindNamespace, Name: "NS", Exported: true, Children: []*Node{inner}}
	x := NewIndex(&Tree{Decls: []*Node{outer, ns, other}})

	assert.Same(t, inner, x.Resolve(TypeRef{Name: "Options", Scope: "NS"}).Decls[0])
	assert.Same(t, outer, x.Resolve(TypeRef{Name: "Options"}).Decls[0])
	assert.Same(t, other, x.Resolve(TypeRef{Name: "Other", Scope: "NS"}).Decls[0])
	assert.Same(t, inner, x.Resolve(TypeRef{Name: "NS.Options"}).Decls[0])
	assert.Nil(t, x.Resolve(TypeRef{Name: "string"}))
	assert.Nil(t, x.Resolve(TypeRef{}))
}

func TestIndex_MergesDeclarations(t *testing.T) {
	t.Parallel()
	a := &Node{Kind: KindInterface, Name: "Merged", Doc: ParseDoc("/** first */"),
		Members: []Member{{Kind: MemberProperty, Name: "a"}}}
	b := &Node{Kind: KindInterface, Name: "Merged",
		Members: []Member{{Kind: MemberProperty, Name: "b"}}}
	x := NewIndex(&Tree{Decls: []*Node{a, b}})

	sym := x.Lookup("Merged")
	require.NotNil(t, sym)
	assert.Equal(t, []*Node{a, b}, x.DeclarationsOf(sym))
	require.Len(t, sym.Docs, 2)
	assert.Equal(t, "first", sym.Docs[0].Text)
	assert.True(t, sym.Docs[1].Empty())

	members := x.MembersOf(sym)
	require.Len(t, members, 2)
	assert.Equal(t, "a", members[0].Name)
	assert.Equal(t, "b", members[1].Name)
	assert.Same(t, sym, x.SymbolOf(b))
}

func TestIndex_ExportsOfInDeclarationOrder(t *testing.T) {
	t.Parallel()
	hidden := &Node{Kind: KindClass, Name: "Hidden"}
	first := &Node{Kind: KindClass, Name: "First", Exported: true}
	inner := &Node{Kind: KindFunction, Name: "f", Exported: true}
	secret := &Node{Kind: KindFunction, Name: "g"}
	ns := &Node{Kind: KindNamespace, Name: "NS", Exported: true, Children: []*Node{inner, secret}}
	tree := &Tree{Decls: []*Node{hidden, first, ns}}
	x := NewIndex(tree)

	var names []string
	for _, sym := range x.ExportsOf(tree) {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"First", "NS", "NS.f"}, names)
}

func TestIndex_MembersOfSkipsNonMemberKinds(t *testing.T) {
	t.Parallel()
	v := &Node{Kind: KindVariable, Name: "Thing", Type: Named("ThingCtor")}
	i := &Node{Kind: KindInterface, Name: "Thing", Members: []Member{{Kind: MemberMethod, Name: "run"}}}
	x := NewIndex(&Tree{Decls: []*Node{v, i}})

	members := x.MembersOf(x.Lookup("Thing"))
	require.Len(t, members, 1)
	assert.Equal(t, "run", members[0].Name)
	assert.Nil(t, x.MembersOf(nil))
}

func TestIndex_ModuleLocalsStayInTheirFile(t *testing.T) {
	t.Parallel()
	public := &Node{Kind: KindInterface, Name: "Options", Exported: true}
	private := &Node{Kind: KindInterface, Name: "Options"}
	helper := &Node{Kind: KindInterface, Name: "Helper"}
	use := &Node{Kind: KindFunction, Name: "g", Exported: true}
	script := &Node{Kind: KindInterface, Name: "Global"}
	x := NewIndex(
		&Tree{Path: "a.d.ts", Decls: []*Node{public}},
		&Tree{Path: "b.d.ts", Decls: []*Node{private, helper, use}},
		&Tree{Path: "globals.d.ts", Decls: []*Node{script}},
	)

	assert.Same(t, private, x.Resolve(TypeRef{Name: "Options", File: "b.d.ts"}).Decls[0])
	assert.Same(t, public, x.Resolve(TypeRef{Name: "Options", File: "a.d.ts"}).Decls[0])
	assert.Same(t, public, x.Resolve(TypeRef{Name: "Options", File: "c.d.ts"}).Decls[0])
	assert.Same(t, helper, x.Resolve(TypeRef{Name: "Helper", File: "b.d.ts"}).Decls[0])
	assert.Nil(t, x.Resolve(TypeRef{Name: "Helper", File: "a.d.ts"}))
	assert.Same(t, script, x.Resolve(TypeRef{Name: "Global", File: "a.d.ts"}).Decls[0])
	assert.NotSame(t, x.SymbolOf(public), x.SymbolOf(private))
	assert.Same(t, x.SymbolOf(public), x.Lookup("Options"))
}

func TestTree_IsModule(t *testing.T) {
	t.Parallel()
	assert.False(t, (&Tree{Decls: []*Node{{Kind: KindInterface, Name: "A"}}}).IsModule())
	assert.True(t, (&Tree{Decls: []*Node{{Kind: KindInterface, Name: "A", Exported: true}}}).IsModule())
	assert.True(t, (&Tree{Imports: []string{`import { X } from "x";`}}).IsModule())
	assert.True(t, (&Tree{Passthrough: []string{`export * from "./y";`}}).IsModule())
}
