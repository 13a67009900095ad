package decl

import (
	"sort"
	"strings"
)

// TypeExpr is a type as written, with the spans of the named references it
// contains. Refs are ordered by Start.
type TypeExpr struct {
	Text string
	Refs []TypeRef
}

// TypeRef is a named pointer into the symbol space. Start and End are byte
// offsets into the owning TypeExpr's Text. Scope is the qualified name of
// the namespace the reference was written in, empty at module level. Bound
// marks a name introduced by an enclosing type parameter list; bound names
// never resolve. File is the path the reference was written in.
type TypeRef struct {
	Name  string
	Start int
	End   int
	Scope string
	File  string
	Bound bool
}

// Named returns an expression consisting of a single reference.
func Named(name string) *TypeExpr {
	return &TypeExpr{Text: name, Refs: []TypeRef{{Name: name, Start: 0, End: len(name)}}}
}

// Builtin returns an expression with no references, e.g. "string".
func Builtin(text string) *TypeExpr {
	return &TypeExpr{Text: text}
}

// String returns the text of t, or "" for nil.
func (t *TypeExpr) String() string {
	if t == nil {
		return ""
	}
	return t.Text
}

// WithRef returns a copy of t in which reference i is renamed to name. The
// spans of later references are shifted accordingly.
func (t *TypeExpr) WithRef(i int, name string) *TypeExpr {
	old := t.Refs[i]
	var b strings.Builder
	b.WriteString(t.Text[:old.Start])
	b.WriteString(name)
	b.WriteString(t.Text[old.End:])

	delta := len(name) - (old.End - old.Start)
	refs := make([]TypeRef, len(t.Refs))
	copy(refs, t.Refs)
	refs[i].Name = name
	refs[i].End = old.Start + len(name)
	for j := i + 1; j < len(refs); j++ {
		refs[j].Start += delta
		refs[j].End += delta
	}
	return &TypeExpr{Text: b.String(), Refs: refs}
}

// Shift returns the references of t with every offset moved by delta, for
// splicing t into a larger expression.
func (t *TypeExpr) Shift(delta int) []TypeRef {
	refs := make([]TypeRef, len(t.Refs))
	for i, r := range t.Refs {
		r.Start += delta
		r.End += delta
		refs[i] = r
	}
	return refs
}

// LastSegment returns the final dotted component of a qualified name.
func LastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Substitute replaces every bound reference named in bindings with the
// bound expression. Compound bindings are parenthesized so operator
// precedence survives the splice.
func (t *TypeExpr) Substitute(bindings map[string]*TypeExpr) *TypeExpr {
	if t == nil || len(bindings) == 0 {
		return t
	}
	var b strings.Builder
	var refs []TypeRef
	last := 0
	changed := false
	for _, r := range t.Refs {
		arg, ok := bindings[r.Name]
		if !r.Bound || !ok {
			continue
		}
		changed = true
		b.WriteString(t.Text[last:r.Start])
		text := arg.Text
		open := 0
		if needsParens(text) {
			text = "(" + text + ")"
			open = 1
		}
		refs = append(refs, arg.Shift(b.Len()+open)...)
		b.WriteString(text)
		last = r.End
	}
	if !changed {
		return t
	}
	b.WriteString(t.Text[last:])

	// Carry over the references that were not substituted, re-anchored by
	// the growth of everything before them.
	out := &TypeExpr{Text: b.String()}
	delta := 0
	for _, r := range t.Refs {
		arg, ok := bindings[r.Name]
		if r.Bound && ok {
			width := len(arg.Text)
			if needsParens(arg.Text) {
				width += 2
			}
			delta += width - (r.End - r.Start)
			continue
		}
		r.Start += delta
		r.End += delta
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Start < refs[j].Start })
	out.Refs = refs
	return out
}

func needsParens(text string) bool {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '|', '&', '?':
			if depth == 0 {
				return true
			}
		case '=':
			if depth == 0 && i+1 < len(text) && text[i+1] == '>' {
				return true
			}
		}
	}
	return strings.HasPrefix(text, "keyof ") || strings.HasPrefix(text, "new ")
}

// Args splits the type argument list that follows the first reference, e.g.
// the "string, Foo" of "Base<string, Foo>". Each argument keeps its own
// references, re-based to the argument text.
func (t *TypeExpr) Args() []*TypeExpr {
	return t.ArgsAt(0)
}

// ArgsAt is Args for reference i.
func (t *TypeExpr) ArgsAt(i int) []*TypeExpr {
	if t == nil || i < 0 || i >= len(t.Refs) {
		return nil
	}
	return t.argsFrom(t.Refs[i].End)
}

func (t *TypeExpr) argsFrom(i int) []*TypeExpr {
	for i < len(t.Text) && t.Text[i] == ' ' {
		i++
	}
	if i >= len(t.Text) || t.Text[i] != '<' {
		return nil
	}
	var args []*TypeExpr
	depth := 0
	start := i + 1
	for j := i; j < len(t.Text); j++ {
		switch t.Text[j] {
		case '<', '(', '[', '{':
			depth++
		case '>', ')', ']', '}':
			if t.Text[j] == '>' && j > 0 && t.Text[j-1] == '=' {
				continue
			}
			depth--
			if depth == 0 {
				return append(args, t.slice(start, j))
			}
		case ',':
			if depth == 1 {
				args = append(args, t.slice(start, j))
				start = j + 1
			}
		}
	}
	return args
}

// slice returns the trimmed sub-expression t.Text[start:end].
func (t *TypeExpr) slice(start, end int) *TypeExpr {
	for start < end && t.Text[start] == ' ' {
		start++
	}
	for end > start && t.Text[end-1] == ' ' {
		end--
	}
	out := &TypeExpr{Text: t.Text[start:end]}
	for _, r := range t.Refs {
		if r.Start >= start && r.End <= end {
			r.Start -= start
			r.End -= start
			out.Refs = append(out.Refs, r)
		}
	}
	return out
}
