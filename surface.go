package narrow

import (
	"github.com/jward/narrow/internal/decl"
	"github.com/jward/narrow/internal/printer"
	"github.com/jward/narrow/internal/store"
)

// surfaceOf fingerprints every retained declaration of a pruned tree,
// namespace members under their qualified names.
func surfaceOf(t *decl.Tree) []store.SurfaceEntry {
	var out []store.SurfaceEntry
	walkTree(t, func(scope string, n *decl.Node) {
		name := decl.Qualify(scope, n.Name)
		if n.Name == "" {
			name = decl.Qualify(scope, "default")
		}
		out = append(out, store.SurfaceEntry{
			Name:          name,
			Kind:          n.Kind.String(),
			SignatureHash: signatureHash(name, n),
		})
	})
	return out
}

func signatureHash(name string, n *decl.Node) string {
	members := make([]string, len(n.Members))
	for i, m := range n.Members {
		members[i] = printer.PrintMember(m, n.Kind)
	}

	// The header is the declaration printed without documentation,
	// members or namespace children.
	head := n.Clone()
	head.Doc = decl.Doc{}
	head.Members = nil
	head.Children = nil

	return store.ComputeSignatureHash(name, n.Kind.String(), modifierList(n), members, printer.PrintNode(head))
}

func modifierList(n *decl.Node) []string {
	var mods []string
	for _, m := range []struct {
		on   bool
		name string
	}{
		{n.Exported, "export"},
		{n.Default, "default"},
		{n.Declare, "declare"},
		{n.Abstract, "abstract"},
		{n.Const, "const"},
	} {
		if m.on {
			mods = append(mods, m.name)
		}
	}
	if n.ExportedAs != "" {
		mods = append(mods, "as "+n.ExportedAs)
	}
	return mods
}
