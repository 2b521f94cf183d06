package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/flow/internal/logging"
	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/aretw0/flow/pkg/ports"
	"github.com/aretw0/flow/pkg/registry"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/google/uuid"
)

// ErrNameConflict is returned when a graph name is already deployed under another ID.
var ErrNameConflict = errors.New("graph name already deployed")

// DefaultLockTTL bounds how long a distributed lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Deployment is a graph initialized in its own scope.
type Deployment struct {
	Definition *domain.GraphDefinition
	Graph      *runtime.Graph
	Scope      *runtime.Scope
}

// Summary describes a deployment for listings.
type Summary struct {
	ID    uuid.UUID `json:"id" yaml:"id"`
	Name  string    `json:"name" yaml:"name"`
	Doc   string    `json:"doc,omitempty" yaml:"doc,omitempty"`
	Nodes int       `json:"nodes" yaml:"nodes"`
}

// Manager deploys graph definitions and routes triggers to their scopes.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store   ports.GraphStore
	catalog *catalog.Catalog

	mu    sync.Mutex               // Global lock for the map
	locks map[uuid.UUID]*lockEntry // Map of active locks

	dmu         sync.RWMutex
	deployments map[uuid.UUID]*Deployment
	reserved    map[string]uuid.UUID // names held by updates in flight

	registry *registry.Registry
	hooks    domain.LifecycleHooks
	metrics  *observability.Metrics
	locker   ports.DistributedLocker // Optional distributed locker
	lockTTL  time.Duration
	logger   *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the scopes it creates.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRegistry sets the Implementations offered to declaration-only nodes.
func WithRegistry(r *registry.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithHooks adds lifecycle hooks to every deployed scope.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithMetrics records into metrics, including its lifecycle hooks.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
		m.hooks = m.hooks.Merge(metrics.Hooks())
	}
}

// NewManager creates a Manager persisting definitions in store and building
// them from cat.
func NewManager(store ports.GraphStore, cat *catalog.Catalog, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		catalog:     cat,
		locks:       make(map[uuid.UUID]*lockEntry),
		deployments: make(map[uuid.UUID]*Deployment),
		reserved:    make(map[string]uuid.UUID),
		registry:    registry.NewRegistry(),
		lockTTL:     DefaultLockTTL,
		logger:      logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying graph store.
func (m *Manager) Store() ports.GraphStore { return m.store }

// Catalog returns the node catalog.
func (m *Manager) Catalog() *catalog.Catalog { return m.catalog }

// Registry returns the Implementation registry.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id uuid.UUID) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// withLocal runs fn holding the in-process lock for id.
func (m *Manager) withLocal(id uuid.UUID, fn func() error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()
	return fn()
}

// WithLock executes fn while holding the lock for the graph, both in process
// and, when configured, across replicas.
func (m *Manager) WithLock(ctx context.Context, id uuid.UUID, fn func(context.Context) error) error {
	return m.withLocal(id, func() error {
		// Distributed Locking
		if m.locker != nil {
			unlock, err := m.locker.Lock(ctx, id.String(), m.lockTTL)
			if err != nil {
				return fmt.Errorf("failed to acquire distributed lock: %w", err)
			}
			defer func() {
				if err := unlock(ctx); err != nil {
					m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
						"graph_id", id,
						"err", err,
					)
				}
			}()
		}
		return fn(ctx)
	})
}

// Update builds and initializes def in a fresh scope, persists it, and then
// replaces the previous deployment with the same ID. When any step fails the
// previous deployment keeps running.
func (m *Manager) Update(ctx context.Context, def *domain.GraphDefinition) error {
	if def.ID == uuid.Nil {
		return fmt.Errorf("graph %q: missing id", def.Name)
	}
	return m.WithLock(ctx, def.ID, func(ctx context.Context) error {
		release, err := m.reserveName(def)
		if err != nil {
			return err
		}
		defer release()

		d, err := m.start(def)
		if err != nil {
			return err
		}
		if err := m.store.Save(ctx, def); err != nil {
			_ = d.Graph.Shutdown(d.Scope)
			return fmt.Errorf("failed to save graph %q: %w", def.Name, err)
		}

		m.dmu.Lock()
		old := m.deployments[def.ID]
		m.deployments[def.ID] = d
		m.dmu.Unlock()

		if old != nil {
			if err := old.Graph.Shutdown(old.Scope); err != nil {
				m.logger.Warn("previous deployment shut down with errors", "graph", old.Graph.Name, "err", err)
			}
		}
		m.logger.Info("graph deployed", "graph", def.Name, "id", def.ID, "nodes", len(def.Nodes))
		return nil
	})
}

// reserveName claims def.Name for def.ID until release is called, so that
// concurrent updates of different IDs cannot both deploy the same name.
func (m *Manager) reserveName(def *domain.GraphDefinition) (release func(), err error) {
	m.dmu.Lock()
	defer m.dmu.Unlock()
	for id, d := range m.deployments {
		if id != def.ID && d.Graph.Name == def.Name {
			return nil, fmt.Errorf("%w: %q is %s", ErrNameConflict, def.Name, id)
		}
	}
	if id, ok := m.reserved[def.Name]; ok && id != def.ID {
		return nil, fmt.Errorf("%w: %q is being deployed as %s", ErrNameConflict, def.Name, id)
	}
	m.reserved[def.Name] = def.ID
	return func() {
		m.dmu.Lock()
		defer m.dmu.Unlock()
		if m.reserved[def.Name] == def.ID {
			delete(m.reserved, def.Name)
		}
	}, nil
}

// start builds def and initializes it in a new scope.
func (m *Manager) start(def *domain.GraphDefinition, opts ...runtime.ScopeOption) (*Deployment, error) {
	g, err := m.catalog.Build(*def, m)
	if err != nil {
		return nil, err
	}
	scope := runtime.NewScope(append([]runtime.ScopeOption{
		runtime.WithLogger(m.logger),
		runtime.WithImplementations(m.registry.Chain()),
		runtime.WithDirectory(m),
		runtime.WithHooks(m.hooks),
	}, opts...)...)
	if err := g.Initialize(scope); err != nil {
		return nil, err
	}
	return &Deployment{Definition: def, Graph: g, Scope: scope}, nil
}

// Delete shuts the deployment down and removes its definition from the store.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.dmu.Lock()
		d := m.deployments[id]
		delete(m.deployments, id)
		m.dmu.Unlock()

		if d == nil {
			if _, err := m.store.Load(ctx, id); err != nil {
				return err
			}
		}
		if err := m.store.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete graph %s: %w", id, err)
		}
		if d != nil {
			m.logger.Info("graph removed", "graph", d.Graph.Name, "id", id)
			return d.Graph.Shutdown(d.Scope)
		}
		return nil
	})
}

// List summarizes the running deployments, sorted by name.
func (m *Manager) List() []Summary {
	m.dmu.RLock()
	defer m.dmu.RUnlock()

	out := make([]Summary, 0, len(m.deployments))
	for id, d := range m.deployments {
		out = append(out, Summary{ID: id, Name: d.Graph.Name, Doc: d.Graph.Doc, Nodes: len(d.Graph.Nodes)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the running deployment for id.
func (m *Manager) Get(id uuid.UUID) (*Deployment, error) {
	m.dmu.RLock()
	defer m.dmu.RUnlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, fmt.Errorf("graph %s: %w", id, domain.ErrGraphNotFound)
	}
	return d, nil
}

// Lookup resolves a graph by name to its ID.
func (m *Manager) Lookup(name string) (uuid.UUID, bool) {
	m.dmu.RLock()
	defer m.dmu.RUnlock()
	for id, d := range m.deployments {
		if d.Graph.Name == name {
			return id, true
		}
	}
	return uuid.Nil, false
}

// Graph implements runtime.Directory over the running deployments.
func (m *Manager) Graph(name string) (*runtime.Graph, bool) {
	id, ok := m.Lookup(name)
	if !ok {
		return nil, false
	}
	d, err := m.Get(id)
	if err != nil {
		return nil, false
	}
	return d.Graph, true
}

// Spec describes every node kind plus every deployed graph that exports ports.
func (m *Manager) Spec() domain.Spec {
	spec := m.catalog.Spec()
	for _, s := range m.List() {
		d, err := m.Get(s.ID)
		if err != nil || len(d.Graph.Ports()) == 0 {
			continue
		}
		spec.Nodes = append(spec.Nodes, d.Graph.Spec())
	}
	return spec
}

// Shutdown stops every deployment. Stored definitions are kept.
func (m *Manager) Shutdown() error {
	m.dmu.Lock()
	deployments := m.deployments
	m.deployments = make(map[uuid.UUID]*Deployment)
	m.dmu.Unlock()

	var errs []error
	for _, d := range deployments {
		if err := d.Graph.Shutdown(d.Scope); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
