package dsl

import (
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	desc    domain.NodeDescription
	builder *Builder
}

// Set stores a setting under key.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	n.desc[key] = value
	return n
}

// Wire connects the port under key to the named wire.
func (n *NodeBuilder) Wire(key, wire string) *NodeBuilder {
	if wire == "" {
		n.builder.errs = append(n.builder.errs, fmt.Errorf("%s.%s: empty wire name", n.desc.Kind(), key))
		return n
	}
	n.desc[key] = int(n.builder.Ref(wire))
	return n
}

// Case adds an entry to a keyed port map (Control/Branch outputs,
// Control/Select inputs): value selects the named wire.
func (n *NodeBuilder) Case(key string, value any, wire string) *NodeBuilder {
	cases, ok := n.desc[key].(map[string]any)
	if !ok {
		cases = make(map[string]any)
		n.desc[key] = cases
	}
	cases[fmt.Sprint(value)] = int(n.builder.Ref(wire))
	return n
}

// Build returns a copy of the underlying description.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.NodeDescription {
	out := make(domain.NodeDescription, len(n.desc))
	for k, v := range n.desc {
		out[k] = v
	}
	return out
}
