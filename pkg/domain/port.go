package domain

import (
	"fmt"

	"github.com/aretw0/flow/pkg/schema"
)

// PortRef identifies a wire inside one graph.
// A data output and the data inputs reading it share the same ref, as do a
// control output and the control inputs it triggers.
type PortRef int

// Unwired marks a port that is not connected. Valid refs start at 1.
const Unwired PortRef = 0

// Wired reports whether the ref names a connection.
func (r PortRef) Wired() bool { return r > Unwired }

func (r PortRef) String() string {
	if !r.Wired() {
		return "unwired"
	}
	return fmt.Sprintf("#%d", int(r))
}

// Direction tells whether a port carries data or control, and which way.
type Direction string

const (
	InData     Direction = "in_data"
	OutData    Direction = "out_data"
	InControl  Direction = "in_control"
	OutControl Direction = "out_control"
)

// IsData reports whether the direction belongs to the data layer.
func (d Direction) IsData() bool { return d == InData || d == OutData }

// IsInput reports whether the direction is an input.
func (d Direction) IsInput() bool { return d == InData || d == InControl }

// Port is a declared input or output slot on a node.
type Port struct {
	// Name is the display label (e.g. "A ∧ B").
	Name string
	// Key is the description key the ref is read from (e.g. "in_a").
	Key       string
	Direction Direction
	// Type is nil for control ports.
	Type schema.Type
	Ref  PortRef
}

// DataIn declares a data input.
func DataIn(name, key string, typ schema.Type, ref PortRef) Port {
	return Port{Name: name, Key: key, Direction: InData, Type: typ, Ref: ref}
}

// DataOut declares a data output.
func DataOut(name, key string, typ schema.Type, ref PortRef) Port {
	return Port{Name: name, Key: key, Direction: OutData, Type: typ, Ref: ref}
}

// ControlIn declares a control input.
func ControlIn(name, key string, ref PortRef) Port {
	return Port{Name: name, Key: key, Direction: InControl, Ref: ref}
}

// ControlOut declares a control output.
func ControlOut(name, key string, ref PortRef) Port {
	return Port{Name: name, Key: key, Direction: OutControl, Ref: ref}
}

// Spec returns the editor metadata for the port.
func (p Port) Spec() PortSpec {
	return PortSpec{
		Name:      p.Name,
		Key:       p.Key,
		Direction: p.Direction,
		Type:      schema.NameOf(p.Type),
	}
}
