package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/flow/pkg/domain"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Phase is the lifecycle position of a Scope.
type Phase int

const (
	PhaseUnloaded Phase = iota
	PhaseInitialized
	PhaseShutDown
)

func (p Phase) String() string {
	switch p {
	case PhaseUnloaded:
		return "unloaded"
	case PhaseInitialized:
		return "initialized"
	case PhaseShutDown:
		return "shut down"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Directory resolves graphs by name for nodes that embed other graphs.
type Directory interface {
	Graph(name string) (*Graph, bool)
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithLogger sets the logger handed to nodes. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) ScopeOption {
	return func(s *Scope) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithImplementations sets the chain consulted for nodes without compiled-in behavior.
func WithImplementations(chain Chain) ScopeOption {
	return func(s *Scope) {
		s.impls = chain
	}
}

// WithDirectory sets the graph directory used by subgraph nodes.
func WithDirectory(dir Directory) ScopeOption {
	return func(s *Scope) {
		s.dir = dir
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) ScopeOption {
	return func(s *Scope) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithContext sets the context passed to hooks and exposed to nodes.
func WithContext(ctx context.Context) ScopeOption {
	return func(s *Scope) {
		if ctx != nil {
			s.ctx = ctx
		}
	}
}

// WithParent nests the scope under parent. The scope inherits the parent's
// services, which later options may override, and is shut down with it.
func WithParent(parent *Scope) ScopeOption {
	return func(s *Scope) {
		s.parent = parent
		s.ctx = parent.ctx
		s.logger = parent.logger
		s.hooks = parent.hooks
		s.impls = parent.impls
		s.dir = parent.dir
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
}

// Scope is the per-execution context of one graph. It owns the cells that
// port references resolve to and the state of every node running in it.
//
// A Scope is driven by a single goroutine. The state arena and the cell tables
// are guarded so that observers may inspect a scope while it runs.
type Scope struct {
	id     uuid.UUID
	ctx    context.Context
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	impls  Chain
	dir    Directory
	parent *Scope

	closed atomic.Bool

	mu          sync.Mutex
	phase       Phase
	graph       *Graph
	dataRefs    map[domain.PortRef]struct{}
	controlRefs map[domain.PortRef]struct{}
	data        map[domain.PortRef]*DataPath
	control     map[domain.PortRef]*ControlPath
	states      map[Node]any
	children    []*Scope
}

// NewScope creates an empty scope in the unloaded phase.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{
		id:          uuid.New(),
		ctx:         context.Background(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		dataRefs:    make(map[domain.PortRef]struct{}),
		controlRefs: make(map[domain.PortRef]struct{}),
		data:        make(map[domain.PortRef]*DataPath),
		control:     make(map[domain.PortRef]*ControlPath),
		states:      make(map[Node]any),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Child creates a scope sharing this scope's services, for a nested graph.
// Children are shut down together with their parent.
func (s *Scope) Child(opts ...ScopeOption) *Scope {
	return NewScope(append([]ScopeOption{WithParent(s)}, opts...)...)
}

func (s *Scope) ID() uuid.UUID                { return s.id }
func (s *Scope) Context() context.Context     { return s.ctx }
func (s *Scope) Logger() *slog.Logger         { return s.logger }
func (s *Scope) Implementations() Chain       { return s.impls }
func (s *Scope) Directory() Directory         { return s.dir }
func (s *Scope) Parent() *Scope               { return s.parent }
func (s *Scope) Hooks() domain.LifecycleHooks { return s.hooks }
func (s *Scope) Closed() bool                 { return s.closed.Load() }

// Phase returns the current lifecycle phase.
func (s *Scope) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Graph returns the graph initialized in this scope, if any.
func (s *Scope) Graph() *Graph {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph
}

// Decode copies a loosely typed description into out using mapstructure.
func (s *Scope) Decode(in, out any) error {
	return Decode(in, out)
}

// Decode copies a loosely typed description into out using mapstructure.
// Numeric strings and floats are converted to the target field types.
func Decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// ResolveData returns the data cell for ref. Resolving the same ref twice
// yields the same cell. Unwired refs and refs no node declared fail with
// ErrPortUnresolved.
func (s *Scope) ResolveData(ref domain.PortRef) (*DataPath, error) {
	if s.closed.Load() {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrNotInitialized}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.data[ref]; ok {
		return p, nil
	}
	if _, ok := s.dataRefs[ref]; !ok || !ref.Wired() {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrPortUnresolved}
	}
	p := &DataPath{ref: ref, scope: s}
	s.data[ref] = p
	return p, nil
}

// ResolveControl returns the control cell for ref, with the same rules as ResolveData.
func (s *Scope) ResolveControl(ref domain.PortRef) (*ControlPath, error) {
	if s.closed.Load() {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrNotInitialized}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.control[ref]; ok {
		return p, nil
	}
	if _, ok := s.controlRefs[ref]; !ok || !ref.Wired() {
		return nil, &domain.PortError{Ref: ref, Err: domain.ErrPortUnresolved}
	}
	p := &ControlPath{ref: ref, scope: s}
	s.control[ref] = p
	return p, nil
}

// ResolvePort resolves a declared port into its cell. Unwired ports yield
// (nil, nil) so that nodes can treat optional ports uniformly.
func (s *Scope) ResolvePort(port domain.Port) (any, error) {
	if !port.Ref.Wired() {
		return nil, nil
	}
	if port.Direction.IsData() {
		return s.ResolveData(port.Ref)
	}
	return s.ResolveControl(port.Ref)
}

// Trigger emits the control cell for ref as an external trigger.
// Only an initialized scope accepts triggers.
func (s *Scope) Trigger(ref domain.PortRef) error {
	if err := s.ready(); err != nil {
		return err
	}
	p, err := s.ResolveControl(ref)
	if err != nil {
		return err
	}
	return p.Emit()
}

// Read pulls the data cell for ref.
func (s *Scope) Read(ref domain.PortRef) (any, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	p, err := s.ResolveData(ref)
	if err != nil {
		return nil, err
	}
	return p.Get()
}

func (s *Scope) ready() error {
	if s.Phase() != PhaseInitialized {
		return fmt.Errorf("scope %s is %s: %w", s.id, s.Phase(), domain.ErrNotInitialized)
	}
	return nil
}

// StateFor returns the state node keeps in this scope, creating it with init
// on first use.
func (s *Scope) StateFor(node Node, init func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[node]; ok {
		return st
	}
	st := init()
	s.states[node] = st
	return st
}

// LoadState returns the state node keeps in this scope without creating it.
func (s *Scope) LoadState(node Node) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[node]
	return st, ok
}

// State is the typed form of Scope.StateFor.
func State[T any](s *Scope, node Node, init func() *T) *T {
	return s.StateFor(node, func() any { return init() }).(*T)
}

// DropState discards the state of node.
func (s *Scope) DropState(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, node)
}

// StateCount returns the number of nodes holding state in this scope.
func (s *Scope) StateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// load moves an unloaded scope to g and declares every wired port of g.
func (s *Scope) load(g *Graph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseUnloaded {
		return fmt.Errorf("scope %s is %s: %w", s.id, s.phase, domain.ErrAlreadyInitialized)
	}
	s.graph = g
	for _, n := range g.Nodes {
		for _, p := range n.Ports() {
			if !p.Ref.Wired() {
				continue
			}
			if p.Direction.IsData() {
				s.dataRefs[p.Ref] = struct{}{}
			} else {
				s.controlRefs[p.Ref] = struct{}{}
			}
		}
	}
	return nil
}

func (s *Scope) install(n Node) error {
	impl := ""
	if b, ok := n.(Behavior); ok {
		if err := b.Initialize(s); err != nil {
			return err
		}
	} else {
		name, err := s.impls.Install(n, s)
		if err != nil {
			return err
		}
		impl = name
	}
	if s.hooks.OnNodeInstall != nil {
		s.hooks.OnNodeInstall(s.ctx, &domain.NodeEvent{
			EventBase:      s.event(domain.EventNodeInstall),
			NodeKind:       n.Kind(),
			Implementation: impl,
		})
	}
	return nil
}

func (s *Scope) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// beginShutdown reports whether the caller is the one shutting the scope down.
func (s *Scope) beginShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseShutDown {
		return false
	}
	s.phase = PhaseShutDown
	return true
}

// close invalidates every cell and drops all state, including that of children.
func (s *Scope) close() {
	s.mu.Lock()
	s.phase = PhaseShutDown
	s.closed.Store(true)
	children := s.children
	s.children = nil
	s.data = make(map[domain.PortRef]*DataPath)
	s.control = make(map[domain.PortRef]*ControlPath)
	s.states = make(map[Node]any)
	s.mu.Unlock()

	for _, c := range children {
		c.close()
	}
}

func (s *Scope) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, ScopeID: s.id}
}
