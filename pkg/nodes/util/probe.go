package util

import (
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// Probe is a host hook. Every signal on In is counted and, when Data is
// wired, the value pulled from it is recorded. The signal is then passed on
// to Out.
type Probe struct {
	runtime.Base
	Label string         `mapstructure:"label"`
	In    domain.PortRef `mapstructure:"in"`
	Data  domain.PortRef `mapstructure:"in_data"`
	Out   domain.PortRef `mapstructure:"out"`
}

// Reading is what a probe observed in one scope.
type Reading struct {
	Label  string `json:"label" yaml:"label"`
	Hits   int    `json:"hits" yaml:"hits"`
	Values []any  `json:"values,omitempty" yaml:"values,omitempty"`
}

func (n *Probe) Kind() string { return KindProbe }

func (n *Probe) Ports() []domain.Port {
	return []domain.Port{
		domain.ControlIn("", "in", n.In),
		domain.DataIn("Data", "in_data", schema.Und(), n.Data),
		domain.ControlOut("", "out", n.Out),
	}
}

func (n *Probe) Initialize(s *runtime.Scope) error {
	st := runtime.State(s, n, func() *Reading { return &Reading{Label: n.Label} })
	data, err := s.Input(n.Data)
	if err != nil {
		return err
	}
	out, err := s.Signal(n.Out)
	if err != nil {
		return err
	}
	return s.On(n, n.In, func() error {
		st.Hits++
		if data != nil {
			v, err := data.Get()
			if err != nil {
				return err
			}
			st.Values = append(st.Values, v)
		}
		return out.Emit()
	})
}

// Read returns a copy of what the probe observed in s. A probe that holds no
// state in s, for instance because s was shut down, reads as empty.
func (n *Probe) Read(s *runtime.Scope) Reading {
	v, ok := s.LoadState(n)
	if !ok {
		return Reading{Label: n.Label}
	}
	st := v.(*Reading)
	r := *st
	r.Values = append([]any(nil), st.Values...)
	return r
}

// Probes lists the probes of g in declaration order.
func Probes(g *runtime.Graph) []*Probe {
	var probes []*Probe
	for _, n := range g.Nodes {
		if p, ok := n.(*Probe); ok {
			probes = append(probes, p)
		}
	}
	return probes
}
