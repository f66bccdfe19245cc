package autodiff

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidNode = errors.New("invalid node handle")
	ErrCycle       = errors.New("cycle detected")
)

// CycleError reports a node that is reachable from itself through parent
// edges. Graphs built through Graph's operators cannot contain cycles; this
// only fires if the arena has been corrupted.
type CycleError struct {
	Node NodeID
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected involving node %d", e.Node)
}

// Unwrap allows errors.Is(err, ErrCycle).
func (e *CycleError) Unwrap() error {
	return ErrCycle
}
