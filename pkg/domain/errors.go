package domain

import (
	"errors"
	"fmt"
)

// ErrGraphNotFound is returned when a graph ID is not registered.
var ErrGraphNotFound = errors.New("graph not found")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrUnsupportedGraphKind is returned when a caller asks for a graph kind nobody builds.
var ErrUnsupportedGraphKind = errors.New("unsupported graph kind")

// ErrInvalidGraph is returned by NewGraph when the topology references unknown nodes.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrStepBudgetExceeded is returned when a run executes more steps than the engine allows.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

var (
	ErrNodeMissing  = errors.New("node missing from graph")
	ErrNilState     = errors.New("step returned nil state")
	ErrStepPanicked = errors.New("step panicked")
)

// NodeExecutionError reports a fatal failure while executing a node.
type NodeExecutionError struct {
	Node  string
	Cause error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Cause)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Cause
}
