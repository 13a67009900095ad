package narrow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/narrow/internal/decl"
	"github.com/jward/narrow/internal/extract"
	"github.com/jward/narrow/internal/printer"
)

// parse builds a tree and its index from declaration source.
func parse(t *testing.T, src string) (*decl.Tree, *decl.Index) {
	t.Helper()
	tree, err := extract.BuildSource(context.Background(), "input.d.ts", []byte(src))
	require.NoError(t, err)
	return tree, decl.NewIndex(tree)
}

// pruneWith parses src and prunes it under cfg.
func pruneWith(t *testing.T, src string, cfg Config) (*decl.Tree, []Diagnostic, error) {
	t.Helper()
	tree, idx := parse(t, src)
	return Prune(tree, idx, cfg)
}

// prunePrinted prunes src with the default config, requires success, and
// returns the whitespace-normalized output.
func prunePrinted(t *testing.T, src string) (string, []Diagnostic) {
	t.Helper()
	out, diags, err := pruneWith(t, src, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, out)
	return normalize(printer.Print(out)), diags
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// find returns the retained top-level declaration called name.
func find(t *testing.T, tree *decl.Tree, name string) *decl.Node {
	t.Helper()
	for _, n := range tree.Decls {
		if n.Kind != decl.KindEmpty && n.Name == name {
			return n
		}
	}
	t.Fatalf("no retained declaration named %q", name)
	return nil
}

func memberNames(n *decl.Node) []string {
	var names []string
	for _, m := range n.Members {
		names = append(names, m.Name)
	}
	return names
}
