package runtime_test

import (
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// stubNode is a Behavior whose install and shutdown steps are supplied by the test.
type stubNode struct {
	runtime.Base
	kind     string
	ports    []domain.Port
	init     func(n *stubNode, s *runtime.Scope) error
	shutdown func(n *stubNode, s *runtime.Scope) error
}

func (n *stubNode) Kind() string         { return n.kind }
func (n *stubNode) Ports() []domain.Port { return n.ports }

func (n *stubNode) Initialize(s *runtime.Scope) error {
	if n.init == nil {
		return nil
	}
	return n.init(n, s)
}

func (n *stubNode) Shutdown(s *runtime.Scope) error {
	if n.shutdown == nil {
		return nil
	}
	return n.shutdown(n, s)
}

// declNode only declares ports; its behavior comes from an Implementation.
type declNode struct {
	kind  string
	ports []domain.Port
}

func (n *declNode) Kind() string         { return n.kind }
func (n *declNode) Ports() []domain.Port { return n.ports }

type counterState struct{ n int }

// counter increments on every signal at in and exposes the count at out.
func counter(in, out domain.PortRef) *stubNode {
	return &stubNode{
		kind: "Test/Counter",
		ports: []domain.Port{
			domain.ControlIn("In", "in", in),
			domain.DataOut("Count", "out", schema.Int(), out),
		},
		init: func(n *stubNode, s *runtime.Scope) error {
			st := runtime.State(s, n, func() *counterState { return &counterState{} })
			cin, err := s.ResolveControl(in)
			if err != nil {
				return err
			}
			dout, err := s.ResolveData(out)
			if err != nil {
				return err
			}
			if err := cin.Declare(n, func() error {
				st.n++
				return nil
			}); err != nil {
				return err
			}
			return dout.Set(func() (any, error) { return st.n, nil })
		},
	}
}

// cell declares a data output and leaves installing its producer to the test.
func cell(out domain.PortRef) *stubNode {
	return &stubNode{
		kind:  "Test/Cell",
		ports: []domain.Port{domain.DataOut("Out", "out", schema.Und(), out)},
	}
}

// source declares a control output that tests trigger.
func source(out domain.PortRef) *stubNode {
	return &stubNode{
		kind:  "Test/Source",
		ports: []domain.Port{domain.ControlOut("Out", "out", out)},
	}
}

// constant produces v at out.
func constant(out domain.PortRef, typ schema.Type, v any) *stubNode {
	return &stubNode{
		kind:  "Test/Constant",
		ports: []domain.Port{domain.DataOut("Out", "out", typ, out)},
		init: func(n *stubNode, s *runtime.Scope) error {
			p, err := s.ResolveData(out)
			if err != nil {
				return err
			}
			return p.Set(runtime.Constant(v))
		},
	}
}
