package narrow

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies a recoverable condition.
type DiagnosticKind string

const (
	// UnresolvedReference: substitute search found no public type for a
	// reference to a pruned declaration. The reference is left as written.
	UnresolvedReference DiagnosticKind = "UnresolvedReference"
	// AmbiguousOverloadDoc: documentation could not be matched to copied
	// overloads by position. The overloads are copied undocumented.
	AmbiguousOverloadDoc DiagnosticKind = "AmbiguousOverloadDoc"
)

// Location identifies a use site in the input.
type Location struct {
	File string
	Line int
	Col  int
	// Decl is the qualified name of the retained declaration.
	Decl string
	// Member is set when the site is inside a class or interface member.
	Member string
	// Site describes the position within the declaration, e.g.
	// "parameter x" or "return type".
	Site string
}

func (l Location) String() string {
	var b strings.Builder
	if l.File != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", l.File, l.Line, l.Col)
	}
	b.WriteString(l.Decl)
	if l.Member != "" {
		b.WriteString(".")
		b.WriteString(l.Member)
	}
	if l.Site != "" {
		b.WriteString(" ")
		b.WriteString(l.Site)
	}
	return b.String()
}

// Diagnostic is a recoverable condition reported by Prune.
type Diagnostic struct {
	Kind     DiagnosticKind
	Location Location
	// Name is the unresolved type name or the member whose documentation
	// was dropped.
	Name    string
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Kind, d.Message)
}

// CountKind returns how many diagnostics have the given kind.
func CountKind(diags []Diagnostic, kind DiagnosticKind) int {
	n := 0
	for _, d := range diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
