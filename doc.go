// Package narrow prunes a TypeScript declaration surface down to its public
// contract. Given the "wide" declarations a compiler emits, including
// implementation-only helper types, it produces the "narrow" tree a library
// publishes: only exported declarations, no hidden members, no heritage
// clauses naming pruned types, and no signatures referring to them.
//
// # Pipeline
//
// [Prune] runs four stages, each producing a new tree from the previous
// one while consulting the original tree's [Resolver] for symbol identity:
//
//  1. Export filter: top-level declarations without an export marker are
//     replaced by empty placeholders.
//  2. Member filter: members named with the hidden prefix (default "_") are
//     dropped; constructors documented with the hide tag lose their
//     parameters and become private or protected.
//  3. Heritage resolver: extends/implements edges to non-exported types are
//     removed and the hidden type's members are copied onto the subtype.
//     Public ancestors of the hidden type are promoted into the clause.
//  4. Reference rewriter: type references to non-exported types are
//     replaced by a public substitute, or reported as unresolved.
//
// # Usage
//
//	tree, idx, err := extract.Build(ctx, "dist/index.d.ts")
//	out, diags, err := narrow.Prune(tree, idx, narrow.DefaultConfig())
//	fmt.Print(printer.Print(out))
//
// The [Engine] wraps the same pipeline for files on disk, with run history
// in SQLite, parallel multi-file pruning and an optional output fix-up
// command.
//
// # Diagnostics
//
// Recoverable conditions are returned as [Diagnostic] values alongside a
// best-effort tree. With [Config.FailOnUnresolved] set, Prune also returns
// an error matching [ErrUnresolved] that aggregates every unresolved
// reference.
package narrow
