package graph

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for lookups against an identifier the store has
// never allocated.
var ErrNotFound = errors.New("entity not found")

// ErrEntityRemoved is returned for lookups against an identifier that was
// valid once but has since been removed. It wraps ErrNotFound so callers
// that only care about "absent" can check a single sentinel.
var ErrEntityRemoved = fmt.Errorf("%w: entity removed", ErrNotFound)

// ErrUnresolved is returned when resolution exhausted every scope without
// finding a binding. Callers may treat it as "external" and continue.
var ErrUnresolved = errors.New("unresolved reference")

// ErrCyclicResolution reports that a resolution query re-entered an entity
// it was already resolving. The resolver converts this to an unresolved
// result rather than surfacing it; it exists for diagnostics.
var ErrCyclicResolution = errors.New("cyclic resolution")

// CommitError reports that applying queued mutations to a file produced
// text the language adapter could not re-parse. The commit is rolled back;
// the codebase remains in its pre-commit committed state.
type CommitError struct {
	Path   string
	Reason string
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed for %s: %s", e.Path, e.Reason)
}
