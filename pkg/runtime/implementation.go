package runtime

import (
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
)

// Implementation supplies behavior for node kinds the node itself does not implement.
// It must be stateless; per-execution state belongs in the Scope.
type Implementation interface {
	Name() string
	// Install recognizes the node and installs its behavior in scope, reporting
	// acceptance. Declining must leave the scope untouched.
	Install(node Node, scope *Scope) (bool, error)
}

// InstallFunc is the signature of a function-backed Implementation.
type InstallFunc func(node Node, scope *Scope) (bool, error)

type funcImplementation struct {
	name string
	fn   InstallFunc
}

func (f *funcImplementation) Name() string { return f.name }

func (f *funcImplementation) Install(node Node, scope *Scope) (bool, error) {
	return f.fn(node, scope)
}

// NewImplementation wraps fn as a named Implementation.
func NewImplementation(name string, fn InstallFunc) Implementation {
	return &funcImplementation{name: name, fn: fn}
}

// Chain is an ordered list of Implementations tried one after another.
type Chain []Implementation

// Install offers the node to each Implementation in order and returns the name
// of the first one that accepts. An Implementation error stops the search.
func (c Chain) Install(node Node, scope *Scope) (string, error) {
	for _, impl := range c {
		ok, err := impl.Install(node, scope)
		if err != nil {
			return impl.Name(), fmt.Errorf("implementation %s: %w", impl.Name(), err)
		}
		if ok {
			return impl.Name(), nil
		}
	}
	return "", fmt.Errorf("%w for %s", domain.ErrNoImplementation, node.Kind())
}

// Names lists the Implementations in the order they are tried.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, impl := range c {
		names[i] = impl.Name()
	}
	return names
}
