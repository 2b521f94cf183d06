package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/aretw0/flow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_ScopeIsolation(t *testing.T) {
	g := runtime.NewGraph("counter", source(1), counter(1, 2))

	s1 := runtime.NewScope()
	s2 := runtime.NewScope()
	require.NoError(t, g.Initialize(s1))
	require.NoError(t, g.Initialize(s2))

	// Trigger only the first scope
	require.NoError(t, s1.Trigger(1))
	require.NoError(t, s1.Trigger(1))

	v1, err := s1.Read(2)
	require.NoError(t, err)
	v2, err := s2.Read(2)
	require.NoError(t, err)

	assert.Equal(t, 2, v1)
	assert.Equal(t, 0, v2, "state must not leak between scopes")
}

func TestGraph_ShutdownInvalidatesScope(t *testing.T) {
	g := runtime.NewGraph("counter", source(1), counter(1, 2))
	s := runtime.NewScope()
	require.NoError(t, g.Initialize(s))
	require.NoError(t, s.Trigger(1))
	assert.Equal(t, 1, s.StateCount())

	cell, err := s.ResolveData(2)
	require.NoError(t, err)

	require.NoError(t, g.Shutdown(s))

	assert.Equal(t, 0, s.StateCount())
	assert.Equal(t, runtime.PhaseShutDown, s.Phase())
	assert.True(t, s.Closed())

	// Cells captured before shutdown fail fast
	_, err = cell.Get()
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	err = s.Trigger(1)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = s.ResolveControl(1)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	// Second shutdown is a no-op
	assert.NoError(t, g.Shutdown(s))
}

func TestGraph_ShutdownJoinsErrors(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")
	var calls int
	fail := func(err error) *stubNode {
		return &stubNode{kind: "Test/Fail", shutdown: func(*stubNode, *runtime.Scope) error {
			calls++
			return err
		}}
	}
	g := runtime.NewGraph("failing", fail(e1), fail(nil), fail(e2))
	s := runtime.NewScope()
	require.NoError(t, g.Initialize(s))

	err := g.Shutdown(s)
	assert.Equal(t, 3, calls, "every node is shut down")
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestGraph_ValidationRunsBeforeAnyNode(t *testing.T) {
	initialized := 0
	track := func(n *stubNode) *stubNode {
		inner := n.init
		n.init = func(n *stubNode, s *runtime.Scope) error {
			initialized++
			if inner != nil {
				return inner(n, s)
			}
			return nil
		}
		return n
	}

	sink := &stubNode{kind: "Test/Sink", ports: []domain.Port{
		domain.DataIn("In", "in", schema.Bit(), 1),
	}}
	g := runtime.NewGraph("mismatch",
		track(constant(1, schema.Int(), 3)),
		track(sink),
	)
	s := runtime.NewScope()

	err := g.Initialize(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	assert.Equal(t, 0, initialized, "no node may run when validation fails")
	assert.Equal(t, runtime.PhaseShutDown, s.Phase())
}

func TestGraph_Validate(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []runtime.Node
		wantErr error
		count   int
	}{
		{
			name:  "valid",
			nodes: []runtime.Node{constant(1, schema.Int(), 1), &declNode{kind: "x", ports: []domain.Port{domain.DataIn("In", "in", schema.Int(), 1)}}},
		},
		{
			name:    "duplicate producer",
			nodes:   []runtime.Node{constant(1, schema.Int(), 1), constant(1, schema.Int(), 2)},
			wantErr: domain.ErrAlreadyInitialized,
			count:   1,
		},
		{
			name: "und accepts anything",
			nodes: []runtime.Node{constant(1, schema.Vec2(), nil), &declNode{kind: "x", ports: []domain.Port{
				domain.DataIn("In", "in", schema.Und(), 1),
			}}},
		},
		{
			name: "all mismatches reported",
			nodes: []runtime.Node{constant(1, schema.Int(), 1), &declNode{kind: "x", ports: []domain.Port{
				domain.DataIn("A", "in_a", schema.Bit(), 1),
				domain.DataIn("B", "in_b", schema.Arr(), 1),
			}}},
			wantErr: domain.ErrTypeMismatch,
			count:   2,
		},
		{
			name: "unproduced input",
			nodes: []runtime.Node{source(1), &declNode{kind: "x", ports: []domain.Port{
				domain.ControlIn("In", "in", 1),
				domain.DataIn("In", "in_data", schema.Und(), 5),
				domain.DataIn("Off", "in_off", schema.Und(), domain.Unwired),
			}}},
			wantErr: domain.ErrPortUnresolved,
			count:   1,
		},
		{
			name:    "wired requirement without producer",
			nodes:   []runtime.Node{&requiring{in: []domain.PortRef{4}, out: 2}},
			wantErr: domain.ErrPortUnresolved,
			count:   1,
		},
		{
			name:    "missing requirement",
			nodes:   []runtime.Node{&requiring{in: []domain.PortRef{1, domain.Unwired}, out: 2}, constant(1, schema.Int(), 1)},
			wantErr: domain.ErrPortUnresolved,
			count:   1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runtime.NewGraph(tt.name, tt.nodes...).Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, schema.ValidationErrors(err), tt.count)
		})
	}
}

type requiring struct {
	in  []domain.PortRef
	out domain.PortRef
}

func (r *requiring) Kind() string { return "Test/Requiring" }

func (r *requiring) Ports() []domain.Port {
	ports := []domain.Port{domain.DataOut("Out", "out", schema.Und(), r.out)}
	for _, in := range r.in {
		ports = append(ports, domain.DataIn("In", "in", schema.Und(), in))
	}
	return ports
}

func (r *requiring) Requirements() []runtime.Requirement {
	return []runtime.Requirement{runtime.Requires(r.out, r.in...)}
}

func TestGraph_InitializeRollsBack(t *testing.T) {
	var shutdowns []string
	ok := func(name string, out domain.PortRef) *stubNode {
		n := constant(out, schema.Int(), 1)
		n.kind = name
		n.shutdown = func(n *stubNode, s *runtime.Scope) error {
			shutdowns = append(shutdowns, n.kind)
			return nil
		}
		inner := n.init
		n.init = func(n *stubNode, s *runtime.Scope) error {
			runtime.State(s, n, func() *counterState { return &counterState{} })
			return inner(n, s)
		}
		return n
	}
	boom := errors.New("boom")
	broken := &stubNode{kind: "Test/Broken", init: func(*stubNode, *runtime.Scope) error { return boom }}
	never := &stubNode{kind: "Test/Never", init: func(*stubNode, *runtime.Scope) error {
		t.Fatal("nodes after the failing one must not run")
		return nil
	}}

	g := runtime.NewGraph("rollback", ok("first", 1), ok("second", 2), broken, never)
	s := runtime.NewScope()

	err := g.Initialize(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *domain.NodeError
	require.True(t, errors.As(err, &nodeErr))
	assert.Equal(t, 2, nodeErr.Index)
	assert.Equal(t, "Test/Broken", nodeErr.Kind)

	assert.Equal(t, []string{"second", "first"}, shutdowns, "reverse order")
	assert.Equal(t, 0, s.StateCount())
	assert.Equal(t, runtime.PhaseShutDown, s.Phase())
}

func TestGraph_InitializeTwiceInSameScope(t *testing.T) {
	g := runtime.NewGraph("once", source(1))
	s := runtime.NewScope()
	require.NoError(t, g.Initialize(s))
	assert.ErrorIs(t, g.Initialize(s), domain.ErrAlreadyInitialized)
}

func TestGraph_DispatchFallsBackToChain(t *testing.T) {
	decl := &declNode{kind: "Test/Declared", ports: []domain.Port{
		domain.DataOut("Out", "out", schema.Int(), 1),
	}}

	var offered []string
	decline := runtime.NewImplementation("decline", func(n runtime.Node, s *runtime.Scope) (bool, error) {
		offered = append(offered, "decline")
		return false, nil
	})
	accept := runtime.NewImplementation("accept", func(n runtime.Node, s *runtime.Scope) (bool, error) {
		offered = append(offered, "accept")
		if n.Kind() != "Test/Declared" {
			return false, nil
		}
		p, err := s.ResolveData(1)
		if err != nil {
			return false, err
		}
		return true, p.Set(runtime.Constant(7))
	})
	unreached := runtime.NewImplementation("unreached", func(runtime.Node, *runtime.Scope) (bool, error) {
		offered = append(offered, "unreached")
		return true, nil
	})

	var installed []string
	hooks := domain.LifecycleHooks{
		OnNodeInstall: func(_ context.Context, e *domain.NodeEvent) {
			installed = append(installed, e.NodeKind+"="+e.Implementation)
		},
	}

	g := runtime.NewGraph("dispatch", decl, source(2))
	s := runtime.NewScope(
		runtime.WithImplementations(runtime.Chain{decline, accept, unreached}),
		runtime.WithHooks(hooks),
	)
	require.NoError(t, g.Initialize(s))

	assert.Equal(t, []string{"decline", "accept"}, offered)
	assert.Equal(t, []string{"Test/Declared=accept", "Test/Source="}, installed)

	v, err := s.Read(1)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestGraph_NoImplementation(t *testing.T) {
	g := runtime.NewGraph("orphan", &declNode{kind: "Test/Orphan"})
	s := runtime.NewScope()

	err := g.Initialize(s)
	assert.ErrorIs(t, err, domain.ErrNoImplementation)
	assert.Contains(t, err.Error(), "Test/Orphan")
}

func TestGraph_EqualByName(t *testing.T) {
	a := runtime.NewGraph("same", source(1))
	b := runtime.NewGraph("same", source(1), source(2))
	c := runtime.NewGraph("other")

	assert.NotEqual(t, a.ID, b.ID)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

type exported struct {
	declNode
	external domain.Port
}

func (e *exported) External() domain.Port { return e.external }

func TestGraph_Spec(t *testing.T) {
	g := runtime.NewGraph("Adder",
		&exported{declNode: declNode{kind: "Nesting/Control Input"}, external: domain.ControlIn("Start", "in", 0)},
		source(3),
		&exported{declNode: declNode{kind: "Nesting/Data Output"}, external: domain.DataOut("Sum", "sum", schema.Int(), 0)},
	)
	g.Doc = "adds"

	spec := g.Spec()
	assert.Equal(t, "Adder", spec.Name)
	assert.Equal(t, "adds", spec.Doc)
	require.Len(t, spec.Ports, 2)
	assert.Equal(t, domain.PortSpec{Name: "Start", Key: "in", Direction: domain.InControl}, spec.Ports[0])
	assert.Equal(t, domain.PortSpec{Name: "Sum", Key: "sum", Direction: domain.OutData, Type: "int"}, spec.Ports[1])
}

func TestGraph_HooksObserveLifecycle(t *testing.T) {
	var events []domain.EventType
	var signals int
	hooks := domain.LifecycleHooks{
		OnGraphInitialize: func(_ context.Context, e *domain.GraphEvent) { events = append(events, e.Type) },
		OnGraphShutdown:   func(_ context.Context, e *domain.GraphEvent) { events = append(events, e.Type) },
		OnSignal: func(_ context.Context, e *domain.SignalEvent) {
			signals++
			assert.Equal(t, 1, e.Consumers)
		},
	}
	g := runtime.NewGraph("hooks", source(1), counter(1, 2))
	s := runtime.NewScope(runtime.WithHooks(hooks))

	require.NoError(t, g.Initialize(s))
	require.NoError(t, s.Trigger(1))
	require.NoError(t, g.Shutdown(s))

	assert.Equal(t, []domain.EventType{domain.EventGraphInitialize, domain.EventGraphShutdown}, events)
	assert.Equal(t, 1, signals)
}

func TestScope_ChildClosesWithParent(t *testing.T) {
	g := runtime.NewGraph("inner", source(1))
	outer := runtime.NewGraph("outer")
	parent := runtime.NewScope()
	require.NoError(t, outer.Initialize(parent))

	child := parent.Child()
	assert.Same(t, parent, child.Parent())
	require.NoError(t, g.Initialize(child))
	require.NoError(t, child.Trigger(1))

	require.NoError(t, outer.Shutdown(parent))
	assert.ErrorIs(t, child.Trigger(1), domain.ErrNotInitialized)
}

func TestDecode(t *testing.T) {
	var cfg struct {
		Start int     `mapstructure:"start"`
		Step  float64 `mapstructure:"step"`
		Name  string  `mapstructure:"name"`
	}
	err := runtime.Decode(map[string]any{"start": "3", "step": 1, "name": "loop"}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Start)
	assert.Equal(t, 1.0, cfg.Step)
	assert.Equal(t, "loop", cfg.Name)
}
