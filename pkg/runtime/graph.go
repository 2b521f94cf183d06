package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/schema"
	"github.com/google/uuid"
)

// Graph is a named, ordered collection of nodes wired by shared port refs.
// A Graph is an immutable declaration; everything that runs lives in a Scope.
type Graph struct {
	ID    uuid.UUID
	Name  string
	Doc   string
	Nodes []Node
}

// NewGraph creates a graph with a fresh ID.
func NewGraph(name string, nodes ...Node) *Graph {
	return &Graph{ID: uuid.New(), Name: name, Nodes: nodes}
}

// Equal reports whether both graphs carry the same name. Identity by name is
// what lets a redeployed definition replace the running one.
func (g *Graph) Equal(other *Graph) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.Name == other.Name
}

// Ports returns the external ports of the graph, taken from its nesting nodes
// in declaration order.
func (g *Graph) Ports() []domain.Port {
	var ports []domain.Port
	for _, n := range g.Nodes {
		if e, ok := n.(Exported); ok {
			ports = append(ports, e.External())
		}
	}
	return ports
}

// Spec describes the graph as a node kind usable by other graphs.
func (g *Graph) Spec() domain.NodeSpec {
	ports := g.Ports()
	spec := domain.NodeSpec{Name: g.Name, Doc: g.Doc, Ports: make([]domain.PortSpec, len(ports))}
	for i, p := range ports {
		spec.Ports[i] = p.Spec()
	}
	return spec
}

// Validate checks the wiring without running anything: one producer per data
// ref, a producer for every wired data input, compatible data types on every
// edge and the declared requirements of each node. All problems are reported together as a schema.AggregateError.
func (g *Graph) Validate() error {
	var errs []error
	producers := make(map[domain.PortRef]domain.Port)
	for _, n := range g.Nodes {
		for _, p := range n.Ports() {
			if p.Direction != domain.OutData || !p.Ref.Wired() {
				continue
			}
			if _, dup := producers[p.Ref]; dup {
				errs = append(errs, &domain.PortError{Ref: p.Ref, Kind: n.Kind(),
					Err: fmt.Errorf("second producer for data output %q: %w", p.Key, domain.ErrAlreadyInitialized)})
				continue
			}
			producers[p.Ref] = p
		}
	}

	for _, n := range g.Nodes {
		for _, p := range n.Ports() {
			if p.Direction != domain.InData || !p.Ref.Wired() {
				continue
			}
			src, ok := producers[p.Ref]
			if !ok {
				errs = append(errs, &domain.PortError{Ref: p.Ref, Kind: n.Kind(),
					Err: fmt.Errorf("no node produces data input %q: %w", p.Key, domain.ErrPortUnresolved)})
				continue
			}
			if !schema.Compatible(src.Type, p.Type) {
				errs = append(errs, &domain.PortError{Ref: p.Ref, Kind: n.Kind(),
					Err: fmt.Errorf("%w: %q carries %s, %q expects %s", domain.ErrTypeMismatch,
						src.Key, schema.NameOf(src.Type), p.Key, schema.NameOf(p.Type))})
			}
		}
		r, ok := n.(Requirer)
		if !ok {
			continue
		}
		for _, req := range r.Requirements() {
			for _, in := range req.Inputs {
				// wired inputs were checked with the ports above
				if in.Wired() {
					continue
				}
				errs = append(errs, &domain.PortError{Ref: in, Kind: n.Kind(),
					Err: fmt.Errorf("output %s requires this input: %w", req.Output, domain.ErrPortUnresolved)})
			}
		}
	}

	if len(errs) > 0 {
		return &schema.AggregateError{Errors: errs}
	}
	return nil
}

// Initialize binds the graph into an unloaded scope and installs every node in
// declaration order. Structural errors are reported before any node runs.
// Initialization is all-or-nothing: when a node fails, the nodes already
// installed are shut down in reverse order and the scope ends shut down.
func (g *Graph) Initialize(scope *Scope) (err error) {
	if err := scope.load(g); err != nil {
		return err
	}
	log := scope.Logger().With("graph", g.Name, "scope", scope.ID())
	defer func() {
		if h := scope.hooks.OnGraphInitialize; h != nil {
			h(scope.ctx, &domain.GraphEvent{
				EventBase: scope.event(domain.EventGraphInitialize),
				GraphID:   g.ID,
				GraphName: g.Name,
				Nodes:     len(g.Nodes),
				Err:       err,
			})
		}
	}()

	if err := g.Validate(); err != nil {
		scope.close()
		log.Warn("graph rejected", "error", err)
		return fmt.Errorf("graph %q: %w", g.Name, err)
	}

	for i, n := range g.Nodes {
		if err := scope.install(n); err != nil {
			g.rollback(scope, i)
			log.Warn("graph initialization aborted", "node", i, "kind", n.Kind(), "error", err)
			return fmt.Errorf("graph %q: %w", g.Name, &domain.NodeError{Index: i, Kind: n.Kind(), Err: err})
		}
	}
	scope.setPhase(PhaseInitialized)
	log.Debug("graph initialized", "nodes", len(g.Nodes))
	return nil
}

// rollback shuts down nodes [0, failed) in reverse order and closes the scope.
func (g *Graph) rollback(scope *Scope, failed int) {
	scope.DropState(g.Nodes[failed])
	for i := failed - 1; i >= 0; i-- {
		n := g.Nodes[i]
		if b, ok := n.(Behavior); ok {
			if err := b.Shutdown(scope); err != nil {
				scope.Logger().Warn("rollback shutdown failed", "node", i, "kind", n.Kind(), "error", err)
			}
		}
		scope.DropState(n)
	}
	scope.close()
}

// Shutdown shuts every node down and invalidates the scope. Every node is
// given the chance to shut down even if earlier ones fail; the failures are
// joined. Shutting down twice is a no-op.
func (g *Graph) Shutdown(scope *Scope) (err error) {
	if cur := scope.Graph(); cur != nil && cur != g {
		return fmt.Errorf("graph %q is not loaded in scope %s: %w", g.Name, scope.ID(), domain.ErrNotInitialized)
	}
	if !scope.beginShutdown() {
		return nil
	}
	var errs []error
	for i, n := range g.Nodes {
		if b, ok := n.(Behavior); ok {
			if err := b.Shutdown(scope); err != nil {
				errs = append(errs, &domain.NodeError{Index: i, Kind: n.Kind(), Err: err})
			}
		}
		scope.DropState(n)
	}
	scope.close()
	err = errors.Join(errs...)

	if h := scope.hooks.OnGraphShutdown; h != nil {
		h(scope.ctx, &domain.GraphEvent{
			EventBase: scope.event(domain.EventGraphShutdown),
			GraphID:   g.ID,
			GraphName: g.Name,
			Nodes:     len(g.Nodes),
			Err:       err,
		})
	}
	scope.Logger().Debug("graph shut down", "graph", g.Name, "scope", scope.ID())
	return err
}
