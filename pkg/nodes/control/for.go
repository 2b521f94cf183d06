package control

import (
	"fmt"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// For emits its body once per element of the closed range [start, end]
// stepped by step, then emits its output once. A negative step counts down;
// a range that is empty in the step's direction only emits the output.
type For struct {
	runtime.Base
	In           domain.PortRef `mapstructure:"in"`
	InRangeStart domain.PortRef `mapstructure:"in_range_start"`
	InRangeEnd   domain.PortRef `mapstructure:"in_range_end"`
	InStep       domain.PortRef `mapstructure:"in_step"`
	OutBody      domain.PortRef `mapstructure:"out_body"`
	Out          domain.PortRef `mapstructure:"out"`
	OutIndex     domain.PortRef `mapstructure:"out_index"`
}

type forState struct {
	index int
}

func (n *For) Kind() string { return KindFor }

func (n *For) Ports() []domain.Port {
	return []domain.Port{
		domain.ControlIn("", "in", n.In),
		domain.DataIn("Start", "in_range_start", schema.Int(), n.InRangeStart),
		domain.DataIn("End", "in_range_end", schema.Int(), n.InRangeEnd),
		domain.DataIn("Step", "in_step", schema.Int(), n.InStep),
		domain.ControlOut("Body", "out_body", n.OutBody),
		domain.ControlOut("", "out", n.Out),
		domain.DataOut("Index", "out_index", schema.Int(), n.OutIndex),
	}
}

func (n *For) Requirements() []runtime.Requirement {
	return []runtime.Requirement{runtime.Requires(n.OutBody, n.InRangeStart, n.InRangeEnd, n.InStep)}
}

func (n *For) Initialize(s *runtime.Scope) error {
	st := runtime.State(s, n, func() *forState { return &forState{} })
	start, err := s.Input(n.InRangeStart)
	if err != nil {
		return err
	}
	end, err := s.Input(n.InRangeEnd)
	if err != nil {
		return err
	}
	step, err := s.Input(n.InStep)
	if err != nil {
		return err
	}
	body, err := s.Signal(n.OutBody)
	if err != nil {
		return err
	}
	out, err := s.Signal(n.Out)
	if err != nil {
		return err
	}
	if err := s.Provide(n.OutIndex, func() (any, error) { return st.index, nil }); err != nil {
		return err
	}
	return s.On(n, n.In, func() error {
		from, err := integer(start)
		if err != nil {
			return err
		}
		to, err := integer(end)
		if err != nil {
			return err
		}
		by, err := integer(step)
		if err != nil {
			return err
		}
		if by == 0 {
			return fmt.Errorf("%w: step must be non-zero", domain.ErrInvalidRange)
		}
		for i := from; (by > 0 && i <= to) || (by < 0 && i >= to); i += by {
			st.index = i
			if err := body.Emit(); err != nil {
				return err
			}
			// stop before i+by could overflow past the bound
			if (by > 0 && i > to-by) || (by < 0 && i < to-by) {
				break
			}
		}
		return out.Emit()
	})
}

func integer(p *runtime.DataPath) (int, error) {
	v, err := p.Get()
	if err != nil {
		return 0, err
	}
	i, err := domain.ToInt(v)
	if err != nil {
		return 0, &domain.PortError{Ref: p.Ref(), Err: err}
	}
	return i, nil
}
