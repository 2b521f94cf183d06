package testutils

import (
	"testing"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
	"github.com/stretchr/testify/require"
)

// Start initializes nodes as one graph in a fresh scope. The graph is shut
// down when the test ends.
func Start(t *testing.T, chain runtime.Chain, nodes ...runtime.Node) *runtime.Scope {
	t.Helper()
	g := runtime.NewGraph(t.Name(), nodes...)
	s := runtime.NewScope(runtime.WithImplementations(chain))
	require.NoError(t, g.Initialize(s), "initialize graph")
	t.Cleanup(func() { _ = g.Shutdown(s) })
	return s
}

// Fixed is a test node producing a constant at Out, or failing with Err
// when it is set.
type Fixed struct {
	runtime.Base
	Out   domain.PortRef
	Value any
	Err   error
	// Pulls counts how often the value was read, across scopes.
	Pulls int
}

// Const returns a Fixed node.
func Const(out domain.PortRef, v any) *Fixed {
	return &Fixed{Out: out, Value: v}
}

// Fail returns a Fixed node whose every read fails with err.
func Fail(out domain.PortRef, err error) *Fixed {
	return &Fixed{Out: out, Err: err}
}

func (n *Fixed) Kind() string { return "Test/Const" }

func (n *Fixed) Ports() []domain.Port {
	return []domain.Port{domain.DataOut("Value", "out", schema.Und(), n.Out)}
}

func (n *Fixed) Initialize(s *runtime.Scope) error {
	return s.Provide(n.Out, func() (any, error) {
		n.Pulls++
		if n.Err != nil {
			return nil, n.Err
		}
		return n.Value, nil
	})
}

// Trigger is a test node declaring a control output the test emits through
// Scope.Trigger.
type Trigger struct {
	runtime.Base
	Out domain.PortRef
}

// Source returns a Trigger node.
func Source(out domain.PortRef) *Trigger { return &Trigger{Out: out} }

func (n *Trigger) Kind() string { return "Test/Trigger" }

func (n *Trigger) Ports() []domain.Port {
	return []domain.Port{domain.ControlOut("Out", "out", n.Out)}
}

func (n *Trigger) Initialize(*runtime.Scope) error { return nil }

// Recorder is a test node recording every signal on In, together with the
// value of Data at that moment when Data is wired.
type Recorder struct {
	runtime.Base
	Name string
	In   domain.PortRef
	Data domain.PortRef
	// Log is shared by recorders to observe ordering across nodes.
	Log *[]string
	// Values holds the pulled data values, one per signal.
	Values []any
}

// Record returns a Recorder appending name to log on every signal.
func Record(name string, in domain.PortRef, log *[]string) *Recorder {
	return &Recorder{Name: name, In: in, Log: log}
}

func (n *Recorder) Kind() string { return "Test/Recorder" }

func (n *Recorder) Ports() []domain.Port {
	return []domain.Port{
		domain.ControlIn("In", "in", n.In),
		domain.DataIn("Data", "in_data", schema.Und(), n.Data),
	}
}

func (n *Recorder) Initialize(s *runtime.Scope) error {
	data, err := s.Input(n.Data)
	if err != nil {
		return err
	}
	return s.On(n, n.In, func() error {
		if n.Log != nil {
			*n.Log = append(*n.Log, n.Name)
		}
		if data != nil {
			v, err := data.Get()
			if err != nil {
				return err
			}
			n.Values = append(n.Values, v)
		}
		return nil
	})
}

// Read pulls ref from an initialized scope and fails the test on error.
func Read(t *testing.T, s *runtime.Scope, ref domain.PortRef) any {
	t.Helper()
	v, err := s.Read(ref)
	require.NoError(t, err, "read %s", ref)
	return v
}
