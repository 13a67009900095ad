package extract

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
)

// extToDialect maps file extensions to the grammar used to parse them.
// Declaration files (.d.ts, .d.mts, .d.cts) share the .ts grammars.
var extToDialect = map[string]string{
	".ts":  "typescript",
	".mts": "typescript",
	".cts": "typescript",
	".tsx": "tsx",
}

// dialectToGrammar maps dialect names to tree-sitter Language objects.
// Lazily initialized on first call via sync.Once.
var (
	dialectToGrammar map[string]*sitter.Language
	grammarsOnce     sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		dialectToGrammar = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
		}
	})
}

// DialectForFile returns the dialect name for a file path based on its
// extension. Returns ("", false) if the extension is not recognized.
func DialectForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := extToDialect[ext]
	return d, ok
}

// Supported reports whether path can be built into a declaration tree.
func Supported(path string) bool {
	_, ok := DialectForFile(path)
	return ok
}

// GrammarForDialect returns the tree-sitter Language for a dialect name.
// Returns (nil, false) if the dialect is not supported.
func GrammarForDialect(dialect string) (*sitter.Language, bool) {
	initGrammars()
	l, ok := dialectToGrammar[dialect]
	return l, ok
}
