package narrow

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrUnresolved is returned by Prune under FailOnUnresolved when any
// reference was left pointing at a pruned declaration.
var ErrUnresolved = errors.New("unresolved references")

// unresolvedError aggregates the UnresolvedReference diagnostics, or returns
// nil when there are none.
func unresolvedError(diags []Diagnostic) error {
	var merr *multierror.Error
	for _, d := range diags {
		if d.Kind == UnresolvedReference {
			merr = multierror.Append(merr, d)
		}
	}
	if merr == nil {
		return nil
	}
	return fmt.Errorf("narrow: %w: %w", ErrUnresolved, merr)
}
