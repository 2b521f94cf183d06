package control

import (
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// Branch emits exactly one control output per signal: the one mapped to the
// current value, or the default when the value is nil, unmapped or unwired.
type Branch struct {
	runtime.Base
	In         domain.PortRef         `mapstructure:"in"`
	InValue    domain.PortRef         `mapstructure:"in_value"`
	Out        map[any]domain.PortRef `mapstructure:"out"`
	OutDefault domain.PortRef         `mapstructure:"out_default"`
}

func (n *Branch) Kind() string { return KindBranch }

func (n *Branch) Prepare() error {
	_, _, err := normalize(n.Out)
	return err
}

func (n *Branch) Ports() []domain.Port {
	ports := []domain.Port{
		domain.ControlIn("", "in", n.In),
		domain.DataIn("Value", "in_value", schema.Und(), n.InValue),
	}
	outs, keys, _ := normalize(n.Out)
	for _, k := range keys {
		ports = append(ports, domain.ControlOut(k, "out."+k, outs[k]))
	}
	return append(ports, domain.ControlOut("Default", "out_default", n.OutDefault))
}

func (n *Branch) Initialize(s *runtime.Scope) error {
	refs, _, err := normalize(n.Out)
	if err != nil {
		return err
	}
	value, err := s.Input(n.InValue)
	if err != nil {
		return err
	}
	outs := make(map[string]*runtime.ControlPath, len(refs))
	for k, ref := range refs {
		if outs[k], err = s.Signal(ref); err != nil {
			return err
		}
	}
	def, err := s.Signal(n.OutDefault)
	if err != nil {
		return err
	}
	return s.On(n, n.In, func() error {
		var v any
		if value != nil {
			got, err := value.Get()
			if err != nil {
				return err
			}
			v = got
		}
		if v != nil {
			if out, ok := outs[matchKey(v)]; ok {
				return out.Emit()
			}
		}
		return def.Emit()
	})
}
