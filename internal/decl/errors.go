package decl

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks input that could not be built into a declaration tree.
	ErrParse = errors.New("parse error")
	// ErrUnsupportedNodeKind marks a declaration the pruning rules cannot
	// handle safely.
	ErrUnsupportedNodeKind = errors.New("unsupported node kind")
)

// ParseError reports where tree construction failed.
type ParseError struct {
	Path    string
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Message)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// UnsupportedKindError reports an inheritance target that is neither a class
// nor an interface.
type UnsupportedKindError struct {
	Name string
	Kind Kind
	Site string
	Pos  Pos
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s inherits from %s %q, which is neither a class nor an interface",
		e.Pos.File, e.Pos.Line, e.Pos.Col, e.Site, e.Kind, e.Name)
}

func (e *UnsupportedKindError) Is(target error) bool { return target == ErrUnsupportedNodeKind }
