package narrow

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/narrow/internal/decl"
	"github.com/jward/narrow/internal/printer"
)

func TestPrune_HiddenBaseIsInlined(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
declare class Base {
    _secret: number;
    ok(): void;
}
export declare class Derived extends Base {
}
`)
	assert.Equal(t, "export declare class Derived { ok(): void; }", got)
	assert.Empty(t, diags)
}

func TestPrune_UnresolvedParameter(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
interface Hidden {
}
export declare function f(x: Hidden): void;
`)
	assert.Equal(t, "export declare function f(x: Hidden): void;", got)

	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, UnresolvedReference, d.Kind)
	assert.Equal(t, "Hidden", d.Name)
	assert.Equal(t, "f", d.Location.Decl)
	assert.Equal(t, "parameter x", d.Location.Site)
	assert.Equal(t, "input.d.ts", d.Location.File)
	assert.Contains(t, d.Error(), "parameter x")
}

func TestPrune_HideConstructor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tag  string
		want decl.Visibility
	}{
		{"alternate marker", "@hideconstructor protected", decl.VisibilityProtected},
		{"default variant", "@hideconstructor", decl.VisibilityPrivate},
		{"other payload", "@hideconstructor internal", decl.VisibilityPrivate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, _, err := pruneWith(t, `
export declare class Widget {
    /** `+tt.tag+` */
    constructor(id: string, size: number);
    render(): void;
}
`, DefaultConfig())
			require.NoError(t, err)

			w := find(t, out, "Widget")
			require.Len(t, w.Members, 2)
			ctor := w.Members[0]
			assert.Equal(t, decl.MemberConstructor, ctor.Kind)
			assert.Equal(t, tt.want, ctor.Visibility)
			assert.Empty(t, ctor.Sig.Params)

			render := w.Members[1]
			assert.Equal(t, "render", render.Name)
			assert.Equal(t, decl.VisibilityNone, render.Visibility)
			assert.Contains(t, printer.Print(out), string(tt.want)+" constructor();")
			assert.True(t, ctor.Doc.Empty(), "hide tag is not published")
			assert.NotContains(t, printer.Print(out), "@hideconstructor")
		})
	}
}

func TestPrune_HideConstructorKeepsOtherDocs(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
export declare class Widget {
    /**
     * Use Widget.create instead.
     *
     * @param id - the widget id
     * @hideconstructor protected
     * @since 2.0
     */
    constructor(id: string);
}
`, DefaultConfig())
	require.NoError(t, err)

	ctor := find(t, out, "Widget").Members[0]
	assert.Equal(t, "Use Widget.create instead.", ctor.Doc.Text)
	assert.Equal(t, []decl.Tag{{Name: "since", Payload: "2.0"}}, ctor.Doc.Tags)
	assert.NotContains(t, ctor.Doc.Raw, "hideconstructor")
	assert.NotContains(t, ctor.Doc.Raw, "@param")
	assert.Contains(t, ctor.Doc.Raw, "@since 2.0")
}

func TestPrune_UntaggedConstructorUnchanged(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
export declare class Point {
    constructor(x: number, y: number);
}
`)
	assert.Equal(t, "export declare class Point { constructor(x: number, y: number); }", got)
}

// =============================================================================
// Export Filter
// =============================================================================

func TestExportFilter_PlaceholdersKeepPositions(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
export declare function a(): void;
declare function b(): void;
export declare const c: number;
`, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, out.Decls, 3)
	assert.Equal(t, decl.KindFunction, out.Decls[0].Kind)
	assert.Equal(t, decl.KindEmpty, out.Decls[1].Kind)
	assert.Equal(t, decl.KindVariable, out.Decls[2].Kind)
	for _, n := range out.Decls {
		if n.Kind != decl.KindEmpty {
			assert.True(t, n.Exported, "%s should be exported", n.Name)
		}
	}
}

func TestExportFilter_NoExports(t *testing.T) {
	t.Parallel()
	out, diags, err := pruneWith(t, `
declare class A {}
interface B {}
`, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, diags)
	for _, n := range out.Decls {
		assert.Equal(t, decl.KindEmpty, n.Kind)
	}
	assert.Empty(t, printer.Print(out))
}

func TestExportFilter_ExportClause(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
declare class Impl {
    run(): void;
}
declare class Unlisted {
}
export { Impl as Runner };
`)
	assert.Equal(t, "declare class Impl { run(): void; } export { Impl as Runner };", got)
}

func TestExportFilter_Namespaces(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
export declare namespace api {
    export interface Request {
        url: string;
    }
    interface Internal {
    }
}
`, DefaultConfig())
	require.NoError(t, err)

	ns := find(t, out, "api")
	require.Len(t, ns.Children, 2)
	assert.Equal(t, "Request", ns.Children[0].Name)
	assert.Equal(t, decl.KindEmpty, ns.Children[1].Kind)
}

// =============================================================================
// Member Filter
// =============================================================================

func TestMemberFilter_HiddenPrefix(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
export interface Service {
    _cache: Map<string, string>;
    _reset(): void;
    start(): void;
    readonly name: string;
}
`, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "name"}, memberNames(find(t, out, "Service")))
}

func TestMemberFilter_CustomAndDisabledPrefix(t *testing.T) {
	t.Parallel()
	src := `
export interface Service {
    internalReset(): void;
    _legacy: number;
    start(): void;
}
`
	cfg := DefaultConfig()
	cfg.HiddenPrefix = "internal"
	out, _, err := pruneWith(t, src, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"_legacy", "start"}, memberNames(find(t, out, "Service")))

	cfg.HiddenPrefix = ""
	out, _, err = pruneWith(t, src, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"internalReset", "_legacy", "start"}, memberNames(find(t, out, "Service")))
}

func TestMemberFilter_AllMembersRemovedKeepsDeclaration(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
export interface Opaque {
    _handle: number;
}
`)
	assert.Equal(t, "export interface Opaque { }", got)
}

type namePolicy map[string]bool

func (p namePolicy) Hidden(_ *decl.Node, m *decl.Member) (bool, error) {
	return p[m.Name], nil
}

type failingPolicy struct{}

func (failingPolicy) Hidden(*decl.Node, *decl.Member) (bool, error) {
	return false, errors.New("script exploded")
}

func TestMemberFilter_Policy(t *testing.T) {
	t.Parallel()
	src := `
declare class Base {
    dispose(): void;
    shared(): void;
}
export declare class Widget extends Base {
    dispose(): void;
    render(): void;
}
`
	cfg := DefaultConfig()
	cfg.Policy = namePolicy{"dispose": true}
	out, _, err := pruneWith(t, src, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"render", "shared"}, memberNames(find(t, out, "Widget")))

	cfg.Policy = failingPolicy{}
	out, _, err = pruneWith(t, src, cfg)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "script exploded")
}

// =============================================================================
// Heritage Resolver
// =============================================================================

func TestHeritage_PublicEdgesKeptInOrder(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
export interface A {
    a: string;
}
interface H {
    h: string;
}
export interface B {
    b: string;
}
export interface C extends A, H, B {
}
`)
	assert.Contains(t, got, "export interface C extends A, B { h: string; }")
}

func TestHeritage_SubtypeMemberWins(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
interface Hidden {
    id: number;
    label: string;
}
export interface Item extends Hidden {
    id: string;
}
`, DefaultConfig())
	require.NoError(t, err)

	item := find(t, out, "Item")
	assert.Equal(t, []string{"id", "label"}, memberNames(item))
	assert.Equal(t, "string", item.Members[0].Type.String())
	assert.Empty(t, item.Heritage)
}

func TestHeritage_ExternalSupertypeKept(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
import { EventEmitter } from "events";
export declare class Bus extends EventEmitter {
}
`)
	assert.Equal(t, `import { EventEmitter } from "events"; export declare class Bus extends EventEmitter { }`, got)
}

func TestHeritage_AncestorPromotion(t *testing.T) {
	t.Parallel()
	src := `
export interface Animal {
    name: string;
}
interface Pet extends Animal {
    owner: string;
}
export interface Dog extends Pet {
    bark(): void;
}
`
	got, _ := prunePrinted(t, src)
	assert.Contains(t, got, "export interface Dog extends Animal { bark(): void; owner: string; }")

	cfg := DefaultConfig()
	cfg.PromoteAncestors = false
	out, _, err := pruneWith(t, src, cfg)
	require.NoError(t, err)
	dog := find(t, out, "Dog")
	assert.Empty(t, dog.Heritage)
	assert.Equal(t, []string{"bark", "owner", "name"}, memberNames(dog))
}

func TestHeritage_HiddenChainFlattened(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
declare class H2 {
    deep(): void;
    private secret(): void;
}
declare class H1 extends H2 {
    mid(): void;
    static create(): H1;
}
export declare class Leaf extends H1 {
    constructor();
}
`, DefaultConfig())
	require.NoError(t, err)

	leaf := find(t, out, "Leaf")
	assert.Empty(t, leaf.Heritage)
	assert.Equal(t, []string{"", "mid", "create", "deep"}, memberNames(leaf))
	assert.True(t, leaf.Members[2].Static)
}

func TestHeritage_ClassImplementsHiddenInterface(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
export interface Disposable {
    dispose(): void;
}
interface Internal extends Disposable {
    flush(): void;
}
export declare class Stream implements Internal {
}
`)
	assert.Contains(t, got, "export declare class Stream implements Disposable { flush(): void; }")
}

func TestHeritage_ClassKeepsSingleExtends(t *testing.T) {
	t.Parallel()
	out, _, err := pruneWith(t, `
export declare class Root {
    root(): void;
}
export declare class Other {
    other(): void;
}
declare class Mid extends Root {
    mid(): void;
}
export declare class Leaf extends Other {
}
export declare class Both extends Mid {
}
`, DefaultConfig())
	require.NoError(t, err)

	both := find(t, out, "Both")
	require.Len(t, both.Heritage, 1)
	assert.Equal(t, "Root", both.Heritage[0].Target.String())
	assert.Equal(t, []string{"mid"}, memberNames(both))
}

func TestHeritage_GenericArgumentsSubstituted(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
interface Box<T> {
    value: T;
    get(): T;
    set(v: T | undefined): void;
}
export interface NumberBox extends Box<number> {
}
`)
	assert.Equal(t, "export interface NumberBox { value: number; get(): number; set(v: number | undefined): void; }", got)
}

func TestHeritage_GenericDefaultUsed(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
interface Holder<T = string> {
    held: T;
}
export interface Plain extends Holder {
}
`)
	assert.Equal(t, "export interface Plain { held: string; }", got)
}

func TestHeritage_UnsupportedKind(t *testing.T) {
	t.Parallel()
	out, diags, err := pruneWith(t, `
type Shape = {
    area: number;
};
export interface Circle extends Shape {
}
`, DefaultConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedNodeKind))
	assert.Nil(t, out)
	assert.Nil(t, diags)

	var kindErr *UnsupportedKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, "Shape", kindErr.Name)
	assert.Equal(t, decl.KindTypeAlias, kindErr.Kind)
	assert.Equal(t, "Circle", kindErr.Site)
}

func TestHeritage_OverloadDocs(t *testing.T) {
	t.Parallel()

	t.Run("all documented", func(t *testing.T) {
		t.Parallel()
		out, diags, err := pruneWith(t, `
declare class Base {
    /** From text. */
    parse(s: string): void;
    /** From bytes. */
    parse(b: Uint8Array): void;
}
export declare class Parser extends Base {
}
`, DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, diags)

		p := find(t, out, "Parser")
		require.Len(t, p.Members, 2)
		assert.Equal(t, "From text.", p.Members[0].Doc.Text)
		assert.Equal(t, "From bytes.", p.Members[1].Doc.Text)
	})

	t.Run("partially documented", func(t *testing.T) {
		t.Parallel()
		out, diags, err := pruneWith(t, `
declare class Base {
    /** From text. */
    parse(s: string): void;
    parse(b: Uint8Array): void;
}
export declare class Parser extends Base {
}
`, DefaultConfig())
		require.NoError(t, err)

		require.Len(t, diags, 1)
		assert.Equal(t, AmbiguousOverloadDoc, diags[0].Kind)
		assert.Equal(t, "parse", diags[0].Name)
		assert.Equal(t, "Parser", diags[0].Location.Decl)
		assert.Equal(t, "inherited from Base", diags[0].Location.Site)

		p := find(t, out, "Parser")
		require.Len(t, p.Members, 2)
		for _, m := range p.Members {
			assert.True(t, m.Doc.Empty())
		}
	})

	t.Run("accessor pair", func(t *testing.T) {
		t.Parallel()
		out, diags, err := pruneWith(t, `
declare class Base {
    /** The size. */
    get size(): number;
    set size(v: number);
}
export declare class Box extends Base {
}
`, DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, diags)

		b := find(t, out, "Box")
		require.Len(t, b.Members, 2)
		assert.Equal(t, "get", b.Members[0].Accessor)
		assert.Equal(t, "The size.", b.Members[0].Doc.Text)
		assert.Equal(t, "set", b.Members[1].Accessor)
		assert.True(t, b.Members[1].Doc.Empty())
	})
}

// =============================================================================
// Reference Rewriter
// =============================================================================

func TestReferences_DerivedExportPreferred(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
export interface Animal {
    name: string;
}
interface Pet extends Animal {
    owner: string;
}
export interface Dog extends Pet {
}
export declare function adopt(p: Pet): Pet[];
`)
	assert.Contains(t, got, "export declare function adopt(p: Dog): Dog[];")
	assert.Empty(t, diags)
}

func TestReferences_AncestorFallback(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
export interface Animal {
    name: string;
}
interface Pet extends Animal {
    owner: string;
}
export declare function adopt(p: Pet): void;
`)
	assert.Contains(t, got, "export declare function adopt(p: Animal): void;")
	assert.Empty(t, diags)
}

func TestReferences_SameNameExportPreferred(t *testing.T) {
	t.Parallel()
	got, _ := prunePrinted(t, `
interface Options {
    a: string;
}
interface OptionsImpl extends Options {
    a: string;
}
export interface Derived extends Options {
}
export { OptionsImpl as Options };
export declare function configure(o: Options): void;
`)
	assert.Contains(t, got, "export declare function configure(o: OptionsImpl): void;")
}

func TestReferences_AllSites(t *testing.T) {
	t.Parallel()
	out, diags, err := pruneWith(t, `
interface Secret {
}
export interface Api<T extends Secret = Secret> {
    prop: Secret;
    method(a: Secret): Secret;
    [key: string]: Secret;
}
export type Alias = Secret | string;
export declare const value: Secret;
`, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, out)

	var sites []string
	for _, d := range diags {
		require.Equal(t, UnresolvedReference, d.Kind)
		assert.Equal(t, "Secret", d.Name)
		sites = append(sites, d.Location.Decl+"|"+d.Location.Member+"|"+d.Location.Site)
	}
	assert.Equal(t, []string{
		"Api||type parameter T constraint",
		"Api||type parameter T default",
		"Api|prop|type",
		"Api|method|parameter a",
		"Api|method|return type",
		"Api|[index]|type",
		"Alias||type",
		"value||type",
	}, sites)
}

func TestReferences_TypeParametersNotRewritten(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
interface T {
}
export declare function identity<T>(v: T): T;
`)
	assert.Equal(t, "export declare function identity<T>(v: T): T;", got)
	assert.Empty(t, diags)
}

func TestReferences_MultipleRefsInOneType(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
export interface Animal {
}
interface Pet extends Animal {
}
interface Ghost {
}
export declare function pick(a: Map<Pet, Ghost | Pet>): void;
`)
	assert.Contains(t, got, "export declare function pick(a: Map<Animal, Ghost | Animal>): void;")
	require.Len(t, diags, 1)
	assert.Equal(t, "Ghost", diags[0].Name)
}

func TestReferences_SubstituteArityMismatch(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
interface Hidden<T> {
    value: T;
}
export interface Pub extends Hidden<number> {
}
export declare function f(x: Hidden<string>): void;
`)
	assert.Contains(t, got, "export declare function f(x: Hidden<string>): void;")
	assert.NotContains(t, got, "Pub<string>")
	require.Len(t, diags, 1)
	assert.Equal(t, UnresolvedReference, diags[0].Kind)
	assert.Equal(t, "Hidden", diags[0].Name)
	assert.Equal(t, "parameter x", diags[0].Location.Site)
}

func TestReferences_SubstituteArityMatches(t *testing.T) {
	t.Parallel()
	got, diags := prunePrinted(t, `
interface Hidden<T> {
    value: T;
}
export interface Box<T, U = never> extends Hidden<T> {
}
export declare function f(x: Hidden<string>): void;
`)
	assert.Contains(t, got, "export declare function f(x: Box<string>): void;")
	assert.Empty(t, diags)
}

// =============================================================================
// Strict mode, config validation and properties
// =============================================================================

func TestPrune_FailOnUnresolved(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.FailOnUnresolved = true

	out, diags, err := pruneWith(t, `
interface Hidden {
}
export declare function f(x: Hidden): Hidden;
`, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolved))
	require.NotNil(t, out, "best-effort tree is still returned")
	assert.Len(t, diags, 2)
	assert.Contains(t, err.Error(), "2 errors occurred")

	// Ambiguous docs alone never fail the run.
	_, diags, err = pruneWith(t, `
declare class Base {
    /** One. */
    m(a: string): void;
    m(b: number): void;
}
export declare class Sub extends Base {
}
`, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, CountKind(diags, AmbiguousOverloadDoc))
}

func TestPrune_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.HideTag = ""
	tree, idx := parse(t, `export declare function f(): void;`)
	out, _, err := Prune(tree, idx, cfg)
	require.Error(t, err)
	assert.Nil(t, out)
}

func TestPrune_InputNotModified(t *testing.T) {
	t.Parallel()
	tree, idx := parse(t, `
declare class Base {
    ok(): void;
}
export declare class Derived extends Base {
    _hidden: number;
}
`)
	before := printer.Print(tree)
	_, _, err := Prune(tree, idx, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, before, printer.Print(tree))
	assert.Len(t, tree.Decls[1].Heritage, 1)
}

func TestPrune_Idempotent(t *testing.T) {
	t.Parallel()
	once, _, err := pruneWith(t, `
export interface Animal {
    name: string;
}
interface Pet extends Animal {
    owner: string;
    _tag: number;
}
export interface Dog extends Pet {
    bark(): void;
}
declare class Helper {
}
export declare function adopt(p: Pet): Dog;
`, DefaultConfig())
	require.NoError(t, err)

	twice, diags, err := Prune(once, decl.NewIndex(once), DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, diags)
	if diff := cmp.Diff(once, twice, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("second prune changed the tree (-once +twice):\n%s", diff)
	}
}
