package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
)

// Builder manages the graph construction.
type Builder struct {
	id    uuid.UUID
	name  string
	doc   string
	nodes []*NodeBuilder
	refs  map[string]domain.PortRef
	errs  []error
}

// New creates a new graph builder.
func New(name string) *Builder {
	return &Builder{
		name: name,
		refs: make(map[string]domain.PortRef),
	}
}

// ID fixes the graph ID. By default it is derived from the name.
func (b *Builder) ID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// Doc sets the graph documentation.
func (b *Builder) Doc(doc string) *Builder {
	b.doc = doc
	return b
}

// Add appends a node of the given kind.
func (b *Builder) Add(kind string) *NodeBuilder {
	nb := &NodeBuilder{
		desc:    domain.NodeDescription{domain.KindKey: kind},
		builder: b,
	}
	if kind == "" {
		b.errs = append(b.errs, fmt.Errorf("node %d: empty kind", len(b.nodes)))
	}
	b.nodes = append(b.nodes, nb)
	return nb
}

// Value adds a Value node producing v on wire.
func (b *Builder) Value(wire string, v any) *NodeBuilder {
	return b.Add("Value").Set("value", v).Wire("out", wire)
}

// Probe adds a Util/Probe counting signals on in and recording data, if not empty.
func (b *Builder) Probe(label, in, data string) *NodeBuilder {
	nb := b.Add("Util/Probe").Set("label", label).Wire("in", in)
	if data != "" {
		nb.Wire("in_data", data)
	}
	return nb
}

// Ref returns the port reference of a wire, allocating it on first use.
func (b *Builder) Ref(wire string) domain.PortRef {
	if ref, ok := b.refs[wire]; ok {
		return ref
	}
	ref := domain.PortRef(len(b.refs) + 1)
	b.refs[wire] = ref
	return ref
}

// Refs returns a copy of the wire table.
func (b *Builder) Refs() map[string]domain.PortRef {
	out := make(map[string]domain.PortRef, len(b.refs))
	for k, v := range b.refs {
		out[k] = v
	}
	return out
}

// Build compiles the graph into a definition.
func (b *Builder) Build() (*domain.GraphDefinition, error) {
	if b.name == "" {
		b.errs = append(b.errs, errors.New("graph name is required"))
	}
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("failed to build graph %q: %w", b.name, errors.Join(b.errs...))
	}

	id := b.id
	if id == uuid.Nil {
		id = domain.StableID(b.name)
	}
	def := &domain.GraphDefinition{
		ID:    id,
		Name:  b.name,
		Doc:   b.doc,
		Nodes: make([]domain.NodeDescription, len(b.nodes)),
	}
	for i, nb := range b.nodes {
		def.Nodes[i] = nb.Build()
	}
	return def, nil
}
