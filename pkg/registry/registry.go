package registry

import (
	"sync"

	"github.com/aretw0/flow/pkg/runtime"
)

// Registry manages the Implementations available to new scopes, in the order
// they are consulted.
type Registry struct {
	mu    sync.RWMutex
	impls []runtime.Implementation
}

// NewRegistry creates a registry holding impls in order.
func NewRegistry(impls ...runtime.Implementation) *Registry {
	r := &Registry{}
	for _, impl := range impls {
		r.Register(impl)
	}
	return r
}

// Register appends an Implementation to the chain.
// If one with the same name exists, it is replaced in place and keeps its position.
func (r *Registry) Register(impl runtime.Implementation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.impls {
		if existing.Name() == impl.Name() {
			r.impls[i] = impl
			return
		}
	}
	r.impls = append(r.impls, impl)
}

// RegisterFunc registers a function-backed Implementation.
func (r *Registry) RegisterFunc(name string, fn runtime.InstallFunc) {
	r.Register(runtime.NewImplementation(name, fn))
}

// Unregister removes the Implementation with the given name, reporting whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.impls {
		if existing.Name() == name {
			r.impls = append(r.impls[:i:i], r.impls[i+1:]...)
			return true
		}
	}
	return false
}

// Names lists the registered Implementations in consultation order.
func (r *Registry) Names() []string {
	return r.Chain().Names()
}

// Chain returns a snapshot of the registered Implementations.
// Later registrations do not affect scopes already holding a snapshot.
func (r *Registry) Chain() runtime.Chain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make(runtime.Chain, len(r.impls))
	copy(chain, r.impls)
	return chain
}
