package nesting

import (
	"fmt"
	"sort"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
)

// Subgraph runs Graph as a node. Refs maps the external port keys of Graph to
// refs of the enclosing graph.
type Subgraph struct {
	Graph *runtime.Graph
	Refs  map[string]domain.PortRef
}

// Compose builds a Subgraph from a description naming g as its kind. Every
// external port key of g is read from the description as a ref.
func Compose(g *runtime.Graph, desc domain.NodeDescription) (runtime.Node, error) {
	n := &Subgraph{Graph: g, Refs: make(map[string]domain.PortRef)}
	for _, p := range g.Ports() {
		v, ok := desc[p.Key]
		if !ok || v == nil {
			continue
		}
		ref, err := domain.ToInt(v)
		if err != nil {
			return nil, fmt.Errorf("port %q: %w", p.Key, err)
		}
		n.Refs[p.Key] = domain.PortRef(ref)
	}
	return n, nil
}

func (n *Subgraph) Kind() string { return n.Graph.Name }

func (n *Subgraph) Ports() []domain.Port {
	ports := n.Graph.Ports()
	for i := range ports {
		ports[i].Ref = n.Refs[ports[i].Key]
	}
	return ports
}

type subgraphState struct {
	child *runtime.Scope
}

func (n *Subgraph) Initialize(s *runtime.Scope) error {
	for p := s; p != nil; p = p.Parent() {
		if n.Graph.Equal(p.Graph()) {
			return domain.InvalidExpression(fmt.Sprintf("graph %q contains itself", n.Graph.Name))
		}
	}

	child := s.Child(runtime.WithContext(withBridge(s.Context(), &bridge{outer: s, refs: n.Refs})))
	if err := n.Graph.Initialize(child); err != nil {
		return err
	}
	if err := n.connect(s, child); err != nil {
		_ = n.Graph.Shutdown(child)
		return err
	}
	runtime.State(s, n, func() *subgraphState { return &subgraphState{child: child} })
	return nil
}

// connect routes outer control inputs into the child and exposes the child's
// data outputs to the outer scope.
func (n *Subgraph) connect(outer, child *runtime.Scope) error {
	// one handler per outer ref, since a node may only declare once per cell
	signals := make(map[domain.PortRef][]*runtime.ControlPath)
	for _, node := range n.Graph.Nodes {
		switch b := node.(type) {
		case *ControlInput:
			ref := n.Refs[b.ExternalKey()]
			if !ref.Wired() {
				continue
			}
			inner, err := child.Signal(b.Out)
			if err != nil {
				return err
			}
			signals[ref] = append(signals[ref], inner)
		case *DataOutput:
			inner, err := child.Input(b.In)
			if err != nil {
				return err
			}
			if err := outer.Provide(n.Refs[b.ExternalKey()], inner.Get); err != nil {
				return err
			}
		}
	}

	refs := make([]domain.PortRef, 0, len(signals))
	for ref := range signals {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	for _, ref := range refs {
		targets := signals[ref]
		err := outer.On(n, ref, func() error {
			for _, t := range targets {
				if err := t.Emit(); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *Subgraph) Shutdown(s *runtime.Scope) error {
	v, ok := s.LoadState(n)
	if !ok {
		return nil
	}
	return n.Graph.Shutdown(v.(*subgraphState).child)
}
