package control

import (
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
)

// Select yields the data input mapped to the current selector value, or the
// default input when the selector is nil or unmapped. Only the chosen input
// is pulled.
type Select struct {
	runtime.Base
	In        domain.PortRef         `mapstructure:"in"`
	InValue   map[any]domain.PortRef `mapstructure:"in_value"`
	InDefault domain.PortRef         `mapstructure:"in_default"`
	Out       domain.PortRef         `mapstructure:"out"`
}

func (n *Select) Kind() string { return KindSelect }

func (n *Select) Prepare() error {
	_, _, err := normalize(n.InValue)
	return err
}

func (n *Select) Ports() []domain.Port {
	ports := []domain.Port{domain.DataIn("Selector", "in", schema.Und(), n.In)}
	ins, keys, _ := normalize(n.InValue)
	for _, k := range keys {
		ports = append(ports, domain.DataIn(k, "in_value."+k, schema.Und(), ins[k]))
	}
	return append(ports,
		domain.DataIn("Default", "in_default", schema.Und(), n.InDefault),
		domain.DataOut("", "out", schema.Und(), n.Out),
	)
}

func (n *Select) Initialize(s *runtime.Scope) error {
	refs, _, err := normalize(n.InValue)
	if err != nil {
		return err
	}
	selector, err := s.Input(n.In)
	if err != nil {
		return err
	}
	ins := make(map[string]*runtime.DataPath, len(refs))
	for k, ref := range refs {
		if ins[k], err = s.Input(ref); err != nil {
			return err
		}
	}
	def, err := s.Input(n.InDefault)
	if err != nil {
		return err
	}
	return s.Provide(n.Out, func() (any, error) {
		v, err := selector.Get()
		if err != nil {
			return nil, err
		}
		if v != nil {
			if in, ok := ins[matchKey(v)]; ok {
				return in.Get()
			}
		}
		return def.Get()
	})
}
