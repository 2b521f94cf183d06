package domain

import (
	"errors"
	"fmt"
)

// ErrPortUnresolved is returned when a port reference does not resolve to a wired cell.
var ErrPortUnresolved = errors.New("port unresolved")

// ErrAlreadyInitialized is returned when a producer or handler is installed twice on one cell.
var ErrAlreadyInitialized = errors.New("already initialized")

// ErrNotInitialized is returned when a cell is accessed before install or after shutdown.
var ErrNotInitialized = errors.New("not initialized")

// ErrTypeMismatch is returned when a value does not have the shape a consumer expects.
var ErrTypeMismatch = errors.New("type mismatch")

// ErrInvalidExpression is returned when an operation is not defined for its operands.
var ErrInvalidExpression = errors.New("invalid expression")

// ErrNoImplementation is returned when no Implementation accepts a node.
var ErrNoImplementation = errors.New("no implementation")

// ErrInvalidRange is returned when a loop is given a zero step.
var ErrInvalidRange = errors.New("invalid range")

// ErrUnknownKind is returned when a description names a node kind nobody registered.
var ErrUnknownKind = errors.New("unknown node kind")

// ErrGraphNotFound is returned when a graph ID or name cannot be found.
var ErrGraphNotFound = errors.New("graph not found")

// PortError attaches a port reference to a failure.
type PortError struct {
	Ref  PortRef
	Kind string // node kind that declared or resolved the port, if known
	Err  error
}

func (e *PortError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("port %s: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: port %s: %v", e.Kind, e.Ref, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

// NodeError attaches the position and kind of a node to a failure.
type NodeError struct {
	Index int
	Kind  string
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// TypeMismatch builds an ErrTypeMismatch for a value that is not of the expected shape.
func TypeMismatch(want string, got any) error {
	return fmt.Errorf("%w: expected %s, got %T", ErrTypeMismatch, want, got)
}

// InvalidExpression builds an ErrInvalidExpression describing the rejected expression.
func InvalidExpression(expr string) error {
	return fmt.Errorf("%w: %s", ErrInvalidExpression, expr)
}
