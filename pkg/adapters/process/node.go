package process

import (
	"errors"

	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/schema"
)

const KindExec = "Process/Exec"

// Register adds the process kinds to c. They only run in scopes whose
// Implementation chain contains a Runner.
func Register(c *catalog.Catalog) {
	c.Register(KindExec, "Runs an allow-listed command on every signal and yields its output.", catalog.Decoded[Exec]())
}

// Exec declares a command invocation. On every signal on In, the arguments
// pulled from Args are passed to the tool, its output becomes the value of
// Result and Out is emitted. When Failed is wired, a failing command emits
// Failed with the error text as Result instead of failing the trigger.
type Exec struct {
	Tool   string         `mapstructure:"tool"`
	In     domain.PortRef `mapstructure:"in"`
	Args   domain.PortRef `mapstructure:"in_args"`
	Out    domain.PortRef `mapstructure:"out"`
	Failed domain.PortRef `mapstructure:"out_error"`
	Result domain.PortRef `mapstructure:"out_result"`
}

func (n *Exec) Kind() string { return KindExec }

func (n *Exec) Ports() []domain.Port {
	return []domain.Port{
		domain.ControlIn("", "in", n.In),
		domain.DataIn("Args", "in_args", schema.Und(), n.Args),
		domain.ControlOut("", "out", n.Out),
		domain.ControlOut("Error", "out_error", n.Failed),
		domain.DataOut("Result", "out_result", schema.Und(), n.Result),
	}
}

func (n *Exec) Prepare() error {
	if n.Tool == "" {
		return errors.New(`missing "tool"`)
	}
	return nil
}
