// Package nesting lets a graph be used as a node of another graph.
//
// The four boundary kinds mark the ports a graph exports. Seen from inside,
// a Control Input is a control output and a Data Output is a data input; seen
// from outside they are the graph's own input and output. A Subgraph runs the
// graph in a child scope and bridges the outer refs to the boundary nodes.
package nesting

import (
	"context"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

const (
	KindControlInput  = "Nesting/Control Input"
	KindControlOutput = "Nesting/Control Output"
	KindDataInput     = "Nesting/Data Input"
	KindDataOutput    = "Nesting/Data Output"
)

// Register adds the boundary kinds to c and lets c build graph nodes.
func Register(c *catalog.Catalog) {
	c.Register(KindControlInput, "Exports a control input.", catalog.Decoded[ControlInput]())
	c.Register(KindControlOutput, "Exports a control output.", catalog.Decoded[ControlOutput]())
	c.Register(KindDataInput, "Exports a data input.", catalog.Decoded[DataInput]())
	c.Register(KindDataOutput, "Exports a data output.", catalog.Decoded[DataOutput]())
	c.SetComposer(Compose)
}

type bridgeKey struct{}

// bridge connects a child scope to the scope running the Subgraph node.
type bridge struct {
	outer *runtime.Scope
	refs  map[string]domain.PortRef
}

func bridgeOf(s *runtime.Scope) *bridge {
	b, _ := s.Context().Value(bridgeKey{}).(*bridge)
	return b
}

func withBridge(ctx context.Context, b *bridge) context.Context {
	return context.WithValue(ctx, bridgeKey{}, b)
}

// Boundary carries the settings shared by the boundary kinds. Key is the
// external port key and defaults to Name.
type Boundary struct {
	Name string `mapstructure:"name"`
	Key  string `mapstructure:"key"`
}

func (p *Boundary) Prepare() error {
	p.Key = p.ExternalKey()
	return nil
}

// ExternalKey returns Key, or Name when no key is set.
func (p *Boundary) ExternalKey() string {
	if p.Key == "" {
		return p.Name
	}
	return p.Key
}

// ControlInput exports a control input. Inside the graph it emits on Out.
type ControlInput struct {
	runtime.Base
	Boundary `mapstructure:",squash"`
	Out      domain.PortRef `mapstructure:"out"`
}

func (n *ControlInput) Kind() string { return KindControlInput }

func (n *ControlInput) Ports() []domain.Port {
	return []domain.Port{domain.ControlOut(n.Name, "out", n.Out)}
}

func (n *ControlInput) External() domain.Port {
	return domain.ControlIn(n.Name, n.ExternalKey(), domain.Unwired)
}

func (n *ControlInput) Initialize(*runtime.Scope) error { return nil }

// ControlOutput exports a control output. Signals on In leave the graph.
type ControlOutput struct {
	runtime.Base
	Boundary `mapstructure:",squash"`
	In       domain.PortRef `mapstructure:"in"`
}

func (n *ControlOutput) Kind() string { return KindControlOutput }

func (n *ControlOutput) Ports() []domain.Port {
	return []domain.Port{domain.ControlIn(n.Name, "in", n.In)}
}

func (n *ControlOutput) External() domain.Port {
	return domain.ControlOut(n.Name, n.ExternalKey(), domain.Unwired)
}

func (n *ControlOutput) Initialize(s *runtime.Scope) error {
	var target *runtime.ControlPath
	if b := bridgeOf(s); b != nil {
		var err error
		if target, err = b.outer.Signal(b.refs[n.ExternalKey()]); err != nil {
			return err
		}
	}
	return s.On(n, n.In, func() error { return target.Emit() })
}

// DataInput exports a data input. Inside the graph it produces at Out the
// outer value, or Default when the graph runs on its own or the outer port is
// unwired.
type DataInput struct {
	runtime.Base
	Boundary `mapstructure:",squash"`
	DataType string         `mapstructure:"data_type"`
	Default  any            `mapstructure:"value"`
	Out      domain.PortRef `mapstructure:"out"`
}

func (n *DataInput) Kind() string { return KindDataInput }

func (n *DataInput) typ() schema.Type {
	typ, err := schema.ParseType(n.DataType)
	if err != nil {
		return schema.Und()
	}
	return typ
}

func (n *DataInput) Prepare() error {
	_ = n.Boundary.Prepare()
	_, err := schema.ParseType(n.DataType)
	return err
}

func (n *DataInput) Ports() []domain.Port {
	return []domain.Port{domain.DataOut(n.Name, "out", n.typ(), n.Out)}
}

func (n *DataInput) External() domain.Port {
	return domain.DataIn(n.Name, n.ExternalKey(), n.typ(), domain.Unwired)
}

func (n *DataInput) Initialize(s *runtime.Scope) error {
	if b := bridgeOf(s); b != nil && b.refs[n.ExternalKey()].Wired() {
		outer, err := b.outer.ResolveData(b.refs[n.ExternalKey()])
		if err != nil {
			return err
		}
		return s.Provide(n.Out, outer.Get)
	}
	if n.Default != nil {
		return s.Provide(n.Out, runtime.Constant(n.Default))
	}
	return nil
}

// DataOutput exports a data output. The value wired to In leaves the graph.
type DataOutput struct {
	runtime.Base
	Boundary `mapstructure:",squash"`
	DataType string         `mapstructure:"data_type"`
	In       domain.PortRef `mapstructure:"in"`
}

func (n *DataOutput) Kind() string { return KindDataOutput }

func (n *DataOutput) typ() schema.Type {
	typ, err := schema.ParseType(n.DataType)
	if err != nil {
		return schema.Und()
	}
	return typ
}

func (n *DataOutput) Prepare() error {
	_ = n.Boundary.Prepare()
	_, err := schema.ParseType(n.DataType)
	return err
}

func (n *DataOutput) Ports() []domain.Port {
	return []domain.Port{domain.DataIn(n.Name, "in", n.typ(), n.In)}
}

func (n *DataOutput) External() domain.Port {
	return domain.DataOut(n.Name, n.ExternalKey(), n.typ(), domain.Unwired)
}

func (n *DataOutput) Initialize(*runtime.Scope) error { return nil }

// ControlInputRef returns the inner ref that the control input key of g emits on.
func ControlInputRef(g *runtime.Graph, key string) (domain.PortRef, bool) {
	for _, node := range g.Nodes {
		if n, ok := node.(*ControlInput); ok && n.ExternalKey() == key {
			return n.Out, n.Out.Wired()
		}
	}
	return domain.Unwired, false
}

// DataOutputRef returns the inner ref that the data output key of g reads.
func DataOutputRef(g *runtime.Graph, key string) (domain.PortRef, bool) {
	for _, node := range g.Nodes {
		if n, ok := node.(*DataOutput); ok && n.ExternalKey() == key {
			return n.In, n.In.Wired()
		}
	}
	return domain.Unwired, false
}
