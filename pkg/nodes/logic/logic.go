// Package logic provides boolean node kinds.
package logic

import (
	"fmt"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

const (
	KindAnd                = "Logic/And"
	KindOr                 = "Logic/Or"
	KindNot                = "Logic/Not"
	KindGreaterThanOrEqual = "Logic/Greater Than or Equal"
)

// Register adds the logic kinds to c.
func Register(c *catalog.Catalog) {
	c.Register(KindAnd, "Logical conjunction.", catalog.Decoded[And]())
	c.Register(KindOr, "Logical disjunction.", catalog.Decoded[Or]())
	c.Register(KindNot, "Logical negation.", catalog.Decoded[Not]())
	c.Register(KindGreaterThanOrEqual, "Numeric comparison A ≥ B.", catalog.Decoded[GreaterThanOrEqual]())
}

// And yields A ∧ B. B is not pulled when A is false.
type And struct {
	runtime.Base
	InA domain.PortRef `mapstructure:"in_a"`
	InB domain.PortRef `mapstructure:"in_b"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *And) Kind() string { return KindAnd }

func (n *And) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("A", "in_a", schema.Bit(), n.InA),
		domain.DataIn("B", "in_b", schema.Bit(), n.InB),
		domain.DataOut("A ∧ B", "out", schema.Bit(), n.Out),
	}
}

func (n *And) Initialize(s *runtime.Scope) error {
	return binary(s, n.InA, n.InB, n.Out, false)
}

// Or yields A ∨ B. B is not pulled when A is true.
type Or struct {
	runtime.Base
	InA domain.PortRef `mapstructure:"in_a"`
	InB domain.PortRef `mapstructure:"in_b"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *Or) Kind() string { return KindOr }

func (n *Or) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("A", "in_a", schema.Bit(), n.InA),
		domain.DataIn("B", "in_b", schema.Bit(), n.InB),
		domain.DataOut("A ∨ B", "out", schema.Bit(), n.Out),
	}
}

func (n *Or) Initialize(s *runtime.Scope) error {
	return binary(s, n.InA, n.InB, n.Out, true)
}

// binary installs a short-circuiting boolean operator: when A equals
// decisive, the result is A and B is never pulled.
func binary(s *runtime.Scope, inA, inB, out domain.PortRef, decisive bool) error {
	a, err := s.Input(inA)
	if err != nil {
		return err
	}
	b, err := s.Input(inB)
	if err != nil {
		return err
	}
	return s.Provide(out, func() (any, error) {
		av, err := bit(a)
		if err != nil || av == decisive {
			return av, err
		}
		return bit(b)
	})
}

func bit(p *runtime.DataPath) (bool, error) {
	v, err := p.Get()
	if err != nil {
		return false, err
	}
	b, err := domain.ToBool(v)
	if err != nil {
		return false, &domain.PortError{Ref: p.Ref(), Err: err}
	}
	return b, nil
}

// Not yields ¬X.
type Not struct {
	runtime.Base
	In  domain.PortRef `mapstructure:"in"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *Not) Kind() string { return KindNot }

func (n *Not) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("X", "in", schema.Bit(), n.In),
		domain.DataOut("¬X", "out", schema.Bit(), n.Out),
	}
}

func (n *Not) Initialize(s *runtime.Scope) error {
	in, err := s.Input(n.In)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		v, err := in.Get()
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, domain.InvalidExpression(fmt.Sprintf("¬%v", v))
		}
		return !b, nil
	})
}

// GreaterThanOrEqual declares A ≥ B. It has no behavior of its own; an
// Implementation installs it.
type GreaterThanOrEqual struct {
	InA domain.PortRef `mapstructure:"in_a"`
	InB domain.PortRef `mapstructure:"in_b"`
	Out domain.PortRef `mapstructure:"out"`
}

func (n *GreaterThanOrEqual) Kind() string { return KindGreaterThanOrEqual }

func (n *GreaterThanOrEqual) Ports() []domain.Port {
	return []domain.Port{
		domain.DataIn("A", "in_a", schema.Und(), n.InA),
		domain.DataIn("B", "in_b", schema.Und(), n.InB),
		domain.DataOut("A ≥ B", "out", schema.Bit(), n.Out),
	}
}

func (n *GreaterThanOrEqual) Requirements() []runtime.Requirement {
	return []runtime.Requirement{runtime.Requires(n.Out, n.InA, n.InB)}
}
