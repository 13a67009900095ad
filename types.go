package narrow

import (
	"github.com/jward/narrow/internal/decl"
	"github.com/jward/narrow/internal/store"
)

// Public type aliases for the internal declaration model. These are Go type
// aliases (=) and identical to the internal types at compile time, so trees
// built by the extractor flow through Prune without conversion.

type Tree = decl.Tree
type Node = decl.Node
type Member = decl.Member
type Symbol = decl.Symbol
type TypeExpr = decl.TypeExpr
type TypeRef = decl.TypeRef
type HeritageEdge = decl.HeritageEdge
type Doc = decl.Doc
type Resolver = decl.Resolver
type MemberPolicy = decl.MemberPolicy
type Index = decl.Index
type ParseError = decl.ParseError
type UnsupportedKindError = decl.UnsupportedKindError

var (
	ErrParse               = decl.ErrParse
	ErrUnsupportedNodeKind = decl.ErrUnsupportedNodeKind
)

// Store aliases, so callers can read run history without importing the
// internal package.
type Store = store.Store
type SurfaceChange = store.SurfaceChange
