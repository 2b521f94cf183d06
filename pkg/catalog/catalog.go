// Package catalog maps node kinds to factories that build nodes from their
// loosely typed descriptions, and turns graph definitions into runtime graphs.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// Factory builds a node from its description. A nil description must yield a
// node with every port unwired; the catalog uses it to describe the kind.
type Factory func(desc domain.NodeDescription) (runtime.Node, error)

// Composer builds the node that runs a named graph inside another graph.
type Composer func(g *runtime.Graph, desc domain.NodeDescription) (runtime.Node, error)

// Kind is a registered node kind.
type Kind struct {
	Name string
	Doc  string
	New  Factory
}

// Catalog is a thread-safe set of node kinds.
type Catalog struct {
	mu      sync.RWMutex
	kinds   map[string]Kind
	compose Composer
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{kinds: make(map[string]Kind)}
}

// Register adds a node kind. If the kind exists, it is overwritten.
func (c *Catalog) Register(name, doc string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kinds[name] = Kind{Name: name, Doc: doc, New: f}
}

// SetComposer sets how descriptions naming a graph instead of a kind are built.
func (c *Catalog) SetComposer(fn Composer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compose = fn
}

// Lookup returns the kind registered under name.
func (c *Catalog) Lookup(name string) (Kind, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.kinds[name]
	return k, ok
}

// Kinds lists the registered kind names in sorted order.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.kinds))
	for name := range c.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node builds a single node. Kinds the catalog does not know are looked up as
// graph names in dir, which may be nil.
func (c *Catalog) Node(desc domain.NodeDescription, dir runtime.Directory) (runtime.Node, error) {
	kind := desc.Kind()
	if k, ok := c.Lookup(kind); ok {
		return k.New(desc)
	}
	c.mu.RLock()
	compose := c.compose
	c.mu.RUnlock()
	if dir != nil && compose != nil {
		if g, ok := dir.Graph(kind); ok {
			return compose(g, desc)
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
}

// Build turns a graph definition into a runtime graph. Every node is attempted
// and all failures are reported together.
func (c *Catalog) Build(def domain.GraphDefinition, dir runtime.Directory) (*runtime.Graph, error) {
	g := &runtime.Graph{ID: def.ID, Name: def.Name, Doc: def.Doc, Nodes: make([]runtime.Node, 0, len(def.Nodes))}
	var errs []error
	for i, desc := range def.Nodes {
		n, err := c.Node(desc, dir)
		if err != nil {
			errs = append(errs, &domain.NodeError{Index: i, Kind: desc.Kind(), Err: err})
			continue
		}
		g.Nodes = append(g.Nodes, n)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("graph %q: %w", def.Name, &schema.AggregateError{Errors: errs})
	}
	return g, nil
}

// Spec describes every registered kind for editors.
func (c *Catalog) Spec() domain.Spec {
	var spec domain.Spec
	for _, name := range c.Kinds() {
		k, _ := c.Lookup(name)
		ns := domain.NodeSpec{Name: name, Doc: k.Doc}
		if n, err := k.New(nil); err == nil {
			for _, p := range n.Ports() {
				ns.Ports = append(ns.Ports, p.Spec())
			}
		}
		spec.Nodes = append(spec.Nodes, ns)
	}
	return spec
}

// Preparer is implemented by nodes that normalize their settings after decoding.
type Preparer interface {
	Prepare() error
}

// Decoded returns a Factory that decodes the description into a new T and
// prepares it.
func Decoded[T any, P interface {
	*T
	runtime.Node
}]() Factory {
	return func(desc domain.NodeDescription) (runtime.Node, error) {
		n := P(new(T))
		if desc != nil {
			if err := runtime.Decode(map[string]any(desc), n); err != nil {
				return nil, err
			}
		}
		if p, ok := any(n).(Preparer); ok {
			if err := p.Prepare(); err != nil {
				return nil, err
			}
		}
		return n, nil
	}
}
