package deploy_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/flow/pkg/adapters/memory"
	"github.com/aretw0/flow/pkg/deploy"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/aretw0/flow/pkg/ports"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// probed negates a constant and probes it on every trigger of ref 1.
func probed(value bool) *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:   uuid.New(),
		Name: "probed",
		Nodes: []domain.NodeDescription{
			{"type": "Nesting/Control Input", "name": "go", "out": 1},
			{"type": "Value", "value": value, "out": 2},
			{"type": "Logic/Not", "in": 2, "out": 3},
			{"type": "Util/Probe", "label": "seen", "in": 1, "in_data": 3},
		},
	}
}

func negate() *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:   uuid.New(),
		Name: "negate",
		Doc:  "Inverts its input.",
		Nodes: []domain.NodeDescription{
			{"type": "Nesting/Data Input", "name": "in", "data_type": "bit", "out": 1},
			{"type": "Logic/Not", "in": 1, "out": 2},
			{"type": "Nesting/Data Output", "name": "out", "data_type": "bit", "in": 2},
		},
	}
}

func usesNegate() *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:   uuid.New(),
		Name: "outer",
		Nodes: []domain.NodeDescription{
			{"type": "Value", "value": true, "out": 1},
			{"type": "negate", "in": 1, "out": 2},
		},
	}
}

func newManager(t *testing.T, store ports.GraphStore, opts ...deploy.Option) *deploy.Manager {
	t.Helper()
	m := deploy.NewManager(store, nodes.Catalog(), opts...)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestManager_TriggerAndRead(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, memory.NewStore())
	def := probed(true)
	require.NoError(t, m.Update(ctx, def))

	require.NoError(t, m.Trigger(ctx, def.ID, 1))
	require.NoError(t, m.Trigger(ctx, def.ID, 1))

	readings, err := m.Probes(def.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "seen", readings[0].Label)
	assert.Equal(t, 2, readings[0].Hits)
	assert.Equal(t, []any{false, false}, readings[0].Values)

	v, err := m.Read(ctx, def.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	// Refs nobody declared are unresolved
	err = m.Trigger(ctx, def.ID, 9)
	assert.ErrorIs(t, err, domain.ErrPortUnresolved)

	// Unknown graphs are not found
	_, err = m.Read(ctx, uuid.New(), 3)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)
}

func TestManager_UpdateReplaces(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := newManager(t, store)

	def := probed(true)
	require.NoError(t, m.Update(ctx, def))
	old, err := m.Get(def.ID)
	require.NoError(t, err)

	next := probed(false)
	next.ID = def.ID
	require.NoError(t, m.Update(ctx, next))

	// The old scope is gone, the new one answers
	assert.True(t, old.Scope.Closed())
	v, err := m.Read(ctx, def.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	saved, err := store.Load(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, false, saved.Nodes[1]["value"])
	assert.Len(t, m.List(), 1)
}

func TestManager_FailedUpdateKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := newManager(t, store)

	def := probed(true)
	require.NoError(t, m.Update(ctx, def))

	tests := []struct {
		name    string
		nodes   []domain.NodeDescription
		wantErr error
	}{
		{
			name:    "unknown kind",
			nodes:   []domain.NodeDescription{{"type": "Nope"}},
			wantErr: domain.ErrUnknownKind,
		},
		{
			name: "type mismatch",
			nodes: []domain.NodeDescription{
				{"type": "Value", "value": []any{1, 2}, "data_type": "vec2", "out": 1},
				{"type": "Logic/Not", "in": 1, "out": 2},
			},
			wantErr: domain.ErrTypeMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := &domain.GraphDefinition{ID: def.ID, Name: "probed", Nodes: tt.nodes}
			err := m.Update(ctx, bad)
			assert.ErrorIs(t, err, tt.wantErr)

			// Still running, still stored
			v, err := m.Read(ctx, def.ID, 3)
			require.NoError(t, err)
			assert.Equal(t, false, v)
			saved, err := store.Load(ctx, def.ID)
			require.NoError(t, err)
			assert.Len(t, saved.Nodes, 4)
		})
	}
}

func TestManager_NameConflict(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, memory.NewStore())
	require.NoError(t, m.Update(ctx, probed(true)))

	err := m.Update(ctx, probed(true))
	assert.ErrorIs(t, err, deploy.ErrNameConflict)
}

// gatedStore holds Save until the test opens the gate.
type gatedStore struct {
	ports.GraphStore
	saving chan struct{}
	gate   chan struct{}
}

func (s *gatedStore) Save(ctx context.Context, def *domain.GraphDefinition) error {
	s.saving <- struct{}{}
	<-s.gate
	return s.GraphStore.Save(ctx, def)
}

func TestManager_ConcurrentUpdatesShareNoName(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{GraphStore: memory.NewStore(), saving: make(chan struct{}, 2), gate: make(chan struct{})}
	m := newManager(t, store)

	first := make(chan error, 1)
	go func() { first <- m.Update(ctx, probed(true)) }()
	<-store.saving

	// The first update is between its checks and its swap.
	err := m.Update(ctx, probed(false))
	assert.ErrorIs(t, err, deploy.ErrNameConflict)

	close(store.gate)
	require.NoError(t, <-first)
	assert.Len(t, m.List(), 1)

	// The name is free again once the winner is removed.
	require.NoError(t, m.Delete(ctx, m.List()[0].ID))
	require.NoError(t, m.Update(ctx, probed(false)))
}

func TestManager_ProbesDuringTriggers(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, memory.NewStore())
	def := probed(true)
	require.NoError(t, m.Update(ctx, def))

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			assert.NoError(t, m.Trigger(ctx, def.ID, 1))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			readings, err := m.Probes(def.ID)
			if assert.NoError(t, err) && assert.Len(t, readings, 1) {
				assert.Len(t, readings[0].Values, readings[0].Hits)
			}
		}
	}()
	wg.Wait()

	readings, err := m.Probes(def.ID)
	require.NoError(t, err)
	assert.Equal(t, n, readings[0].Hits)
}

func TestManager_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := newManager(t, store)

	def := probed(true)
	require.NoError(t, m.Update(ctx, def))
	d, err := m.Get(def.ID)
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, def.ID))
	assert.True(t, d.Scope.Closed())
	assert.Empty(t, m.List())

	_, err = store.Load(ctx, def.ID)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	// Deleting twice reports the missing graph
	assert.ErrorIs(t, m.Delete(ctx, def.ID), domain.ErrGraphNotFound)
}

func TestManager_CompositeRestore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	// Save the dependent first so that at least one ordering needs a second pass
	outer, inner := usesNegate(), negate()
	require.NoError(t, store.Save(ctx, outer))
	require.NoError(t, store.Save(ctx, inner))

	m := newManager(t, store)
	require.NoError(t, m.Restore(ctx))
	assert.Len(t, m.List(), 2)

	v, err := m.Read(ctx, outer.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, false, v)

	g, ok := m.Graph("negate")
	require.True(t, ok)
	assert.Equal(t, inner.ID, g.ID)

	// The exported graph shows up as a node kind
	var found bool
	for _, ns := range m.Spec().Nodes {
		if ns.Name == "negate" {
			found = true
			assert.Equal(t, "Inverts its input.", ns.Doc)
			assert.Len(t, ns.Ports, 2)
		}
		assert.NotEqual(t, "outer", ns.Name, "graphs without exported ports are not kinds")
	}
	assert.True(t, found)
}

func TestManager_RestoreReportsUnresolvable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, usesNegate()))

	m := newManager(t, store)
	err := m.Restore(ctx)
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
	assert.Empty(t, m.List())
}

func TestManager_Import(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStore()
	require.NoError(t, source.Save(ctx, negate()))
	require.NoError(t, source.Save(ctx, usesNegate()))

	store := memory.NewStore()
	m := newManager(t, store)
	require.NoError(t, m.Import(ctx, source))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

// countingLocker records lock usage.
type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastTTL  time.Duration
	held     map[string]bool
	overlaps int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		l.overlaps++
	}
	l.held[key] = true
	l.locks++
	l.lastTTL = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held[key] = false
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	ctx := context.Background()
	locker := &countingLocker{}
	m := newManager(t, memory.NewStore(), deploy.WithLocker(locker), deploy.WithLockTTL(time.Second))

	def := probed(true)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Update(ctx, def))
		}()
	}
	wg.Wait()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	assert.Equal(t, 10, locker.locks)
	assert.Equal(t, 10, locker.unlocks)
	assert.Zero(t, locker.overlaps, "updates of one graph must not overlap")
	assert.Equal(t, time.Second, locker.lastTTL)
}

func TestManager_Metrics(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics()
	m := newManager(t, memory.NewStore(), deploy.WithMetrics(metrics))

	def := probed(true)
	require.NoError(t, m.Update(ctx, def))
	require.NoError(t, m.Trigger(ctx, def.ID, 1))

	n, err := testutil.GatherAndCount(metrics.Registry(), "flow_trigger_duration_seconds", "flow_graph_initializations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestManager_Instantiate(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, memory.NewStore())
	require.NoError(t, m.Update(ctx, negate()))

	def := usesNegate()
	def.Nodes = append(def.Nodes,
		domain.NodeDescription{"type": "Nesting/Control Input", "name": "go", "out": 3},
		domain.NodeDescription{"type": "Util/Probe", "label": "out", "in": 3, "in_data": 2},
	)

	a, err := m.Instantiate(ctx, def)
	require.NoError(t, err)
	b, err := m.Instantiate(ctx, def)
	require.NoError(t, err)

	require.NoError(t, a.Scope.Trigger(3))
	assert.Equal(t, 1, a.Probes()[0].Hits)
	assert.Equal(t, []any{false}, a.Probes()[0].Values)
	assert.Equal(t, 0, b.Probes()[0].Hits, "instances do not share state")

	// Instances are neither deployed nor stored
	assert.Len(t, m.List(), 1)
	_, err = m.Store().Load(ctx, def.ID)
	assert.ErrorIs(t, err, domain.ErrGraphNotFound)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.Instantiate(cancelled, def)
	assert.ErrorIs(t, err, context.Canceled)
}
