// Package vector2 provides arithmetic on two-component vectors.
//
// Operands keep their precision when both share it (Int2, Float2 or Double2);
// mixed operands are promoted to Double2. Anything that is not a vector makes
// the expression invalid.
package vector2

import (
	"fmt"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

const (
	KindAdd      = "Math/Vector 2/Add"
	KindAbsolute = "Math/Vector 2/Absolute"
)

// Register adds the vector kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindAdd, "Component-wise sum of two vectors.", catalog.Decoded[Add]())
	c.Register(KindAbsolute, "Component-wise absolute value.", catalog.Decoded[Absolute]())
}

// Add yields A + B.
type Add struct {
	runtime.Base
	InA domain.PortRef `mapstructure:"in_a"`
	InB domain.PortRef `mapstructure:"in_b"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *Add) Kind() string { return KindAdd }

func (n *Add) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("A", "in_a", schema.Vec2(), n.InA),
		domain.DataIn("B", "in_b", schema.Vec2(), n.InB),
		domain.DataOut("A + B", "out", schema.Vec2(), n.Out),
	}
}

func (n *Add) Initialize(s *runtime.Scope) error {
	a, err := s.Input(n.InA)
	if err != nil {
		return err
	}
	b, err := s.Input(n.InB)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		av, err := a.Get()
		if err != nil {
			return nil, err
		}
		bv, err := b.Get()
		if err != nil {
			return nil, err
		}
		return add(av, bv)
	})
}

// vector converts decoded lists and maps to vector values; anything else is
// returned as is.
func vector(v any) any {
	if vec, err := domain.ToVec2(v); err == nil {
		return vec
	}
	return v
}

func add(a, b any) (any, error) {
	a, b = vector(a), vector(b)
	switch x := a.(type) {
	case domain.Int2:
		if y, ok := b.(domain.Int2); ok {
			return domain.Int2{X: x.X + y.X, Y: x.Y + y.Y}, nil
		}
	case domain.Float2:
		if y, ok := b.(domain.Float2); ok {
			return domain.Float2{X: x.X + y.X, Y: x.Y + y.Y}, nil
		}
	}
	va, okA := a.(schema.Vector)
	vb, okB := b.(schema.Vector)
	if !okA || !okB {
		return nil, domain.InvalidExpression(fmt.Sprintf("%v + %v", a, b))
	}
	ax, ay := va.Components()
	bx, by := vb.Components()
	return domain.Double2{X: ax + bx, Y: ay + by}, nil
}

// Absolute yields |X|.
type Absolute struct {
	runtime.Base
	In  domain.PortRef `mapstructure:"in"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *Absolute) Kind() string { return KindAbsolute }

func (n *Absolute) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("X", "in", schema.Vec2(), n.In),
		domain.DataOut("|X|", "out", schema.Vec2(), n.Out),
	}
}

func (n *Absolute) Initialize(s *runtime.Scope) error {
	in, err := s.Input(n.In)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		v, err := in.Get()
		if err != nil {
			return nil, err
		}
		switch x := vector(v).(type) {
		case domain.Int2:
			return x.Abs(), nil
		case domain.Float2:
			return x.Abs(), nil
		case domain.Double2:
			return x.Abs(), nil
		}
		return nil, domain.InvalidExpression(fmt.Sprintf("|%v|", v))
	})
}
