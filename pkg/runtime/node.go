package runtime

import "github.com/aretw0/flow/pkg/domain"

// Node is a declared unit of computation.
// Implementations must be pointer types: nodes are used as identity keys for
// per-scope state and handler ownership.
type Node interface {
	// Kind returns the node kind identifier (e.g. "Logic/And").
	Kind() string
	// Ports returns the ordered port declarations of this instance.
	Ports() []domain.Port
}

// Behavior is a node that installs its own producers and handlers.
type Behavior interface {
	Node
	// Initialize resolves the node's ports in scope and installs its logic.
	Initialize(scope *Scope) error
	// Shutdown releases whatever the node holds for scope.
	Shutdown(scope *Scope) error
}

// Base can be embedded by nodes that keep no resources outside the scope state arena.
type Base struct{}

// Shutdown does nothing; the graph drops per-node state on its own.
func (Base) Shutdown(*Scope) error { return nil }

// Requirement states that an output can only be computed when all listed inputs are wired.
type Requirement struct {
	Output domain.PortRef
	Inputs []domain.PortRef
}

// Requires builds a Requirement.
func Requires(out domain.PortRef, in ...domain.PortRef) Requirement {
	return Requirement{Output: out, Inputs: in}
}

// Requirer is implemented by nodes that declare wiring requirements.
// Graph.Validate enforces them before any node is initialized.
type Requirer interface {
	Requirements() []Requirement
}

// Exported is implemented by nesting nodes whose port becomes a port of the
// graph when the graph is used as a node.
type Exported interface {
	Node
	// External returns the port as seen from outside the graph.
	External() domain.Port
}
