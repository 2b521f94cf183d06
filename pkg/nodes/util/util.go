// Package util provides the Value source and the Probe host hook.
package util

import (
	"fmt"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

const (
	KindValue = "Value"
	KindProbe = "Util/Probe"
)

// Register adds the util kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindValue, "Constant value.", catalog.Decoded[Value]())
	c.Register(KindProbe, "Records signals and the value wired to it.", catalog.Decoded[Probe]())
}

// Value produces a constant. DataType optionally names the tag of the value,
// which is checked when the description is decoded.
type Value struct {
	runtime.Base
	Value    any            `mapstructure:"value"`
	DataType string         `mapstructure:"data_type"`
	Out      domain.PortRef `mapstructure:"out"`
}

func (n *Value) Kind() string { return KindValue }

func (n *Value) Prepare() error {
	typ, err := schema.ParseType(n.DataType)
	if err != nil {
		return err
	}
	if n.Value == nil {
		return nil
	}
	// decoded files carry vectors as lists or maps and integers as floats
	switch typ {
	case schema.Vec2():
		if v, err := domain.ToVec2(n.Value); err == nil {
			n.Value = v
		}
	case schema.Int():
		if v, err := domain.ToInt(n.Value); err == nil {
			n.Value = v
		}
	}
	if err := typ.Validate(n.Value); err != nil {
		return fmt.Errorf("value %v: %w", n.Value, err)
	}
	return nil
}

func (n *Value) Ports() []domain.Port {
	typ, err := schema.ParseType(n.DataType)
	if err != nil {
		typ = schema.Und()
	}
	return []domain.Port{domain.DataOut("Value", "out", typ, n.Out)}
}

func (n *Value) Initialize(s *runtime.Scope) error {
	return s.Provide(n.Out, runtime.Constant(n.Value))
}
