package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/flow/internal/logging"
	"github.com/aretw0/flow/pkg/adapters/memory"
	"github.com/aretw0/flow/pkg/catalog"
	"github.com/aretw0/flow/pkg/deploy"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/impl/virtual"
	"github.com/aretw0/flow/pkg/nodes"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/aretw0/flow/pkg/ports"
	"github.com/aretw0/flow/pkg/registry"
	"github.com/aretw0/flow/pkg/runtime"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Version is the library version reported by the CLI and the servers.
const Version = "0.1.0"

// Engine is the high-level entry point for the flow library.
// It wraps a deployment manager and provides a simplified API for consumers.
type Engine struct {
	manager  *deploy.Manager
	store    ports.GraphStore
	locker   ports.DistributedLocker
	lockTTL  time.Duration
	catalog  *catalog.Catalog
	registry *registry.Registry
	impls    []runtime.Implementation
	hooks    domain.LifecycleHooks
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore sets where deployed definitions are kept (default: in memory).
func WithStore(store ports.GraphStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker guards updates and deletes with a distributed lock.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithHooks registers observability hooks. Repeated calls accumulate.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithImplementations appends Implementations after the built-in ones.
func WithImplementations(impls ...runtime.Implementation) Option {
	return func(e *Engine) {
		e.impls = append(e.impls, impls...)
	}
}

// WithCatalog replaces the built-in node catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = c
	}
}

// WithMetrics records engine activity in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.catalog == nil {
		e.catalog = nodes.Catalog()
	}
	e.registry = registry.NewRegistry(virtual.Implementation())
	for _, impl := range e.impls {
		e.registry.Register(impl)
	}

	managerOpts := []deploy.Option{
		deploy.WithLogger(e.logger),
		deploy.WithRegistry(e.registry),
		deploy.WithHooks(e.hooks),
	}
	if e.locker != nil {
		managerOpts = append(managerOpts, deploy.WithLocker(e.locker))
		if e.lockTTL > 0 {
			managerOpts = append(managerOpts, deploy.WithLockTTL(e.lockTTL))
		}
	}
	if e.metrics != nil {
		managerOpts = append(managerOpts, deploy.WithMetrics(e.metrics))
	}
	e.manager = deploy.NewManager(e.store, e.catalog, managerOpts...)
	return e
}

// Manager returns the deployment manager backing the engine.
func (e *Engine) Manager() *deploy.Manager { return e.manager }

// Registry returns the Implementation registry new scopes are created with.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Deploy initializes def in its own scope and stores it, replacing the
// deployment with the same ID.
func (e *Engine) Deploy(ctx context.Context, def *domain.GraphDefinition) error {
	return e.manager.Update(ctx, def)
}

// Undeploy shuts the graph down and removes it from the store.
func (e *Engine) Undeploy(ctx context.Context, id uuid.UUID) error {
	return e.manager.Delete(ctx, id)
}

// Load deploys every graph of source.
func (e *Engine) Load(ctx context.Context, source ports.GraphSource) error {
	return e.manager.Import(ctx, source)
}

// Restore deploys every graph already in the store.
func (e *Engine) Restore(ctx context.Context) error {
	return e.manager.Restore(ctx)
}

// Trigger emits ref on a deployed graph.
func (e *Engine) Trigger(ctx context.Context, id uuid.UUID, ref domain.PortRef) error {
	return e.manager.Trigger(ctx, id, ref)
}

// Read pulls ref from a deployed graph.
func (e *Engine) Read(ctx context.Context, id uuid.UUID, ref domain.PortRef) (any, error) {
	return e.manager.Read(ctx, id, ref)
}

// Probes returns what the probes of a deployed graph observed.
func (e *Engine) Probes(id uuid.UUID) ([]util.Reading, error) {
	return e.manager.Probes(id)
}

// Spec describes the node kinds and deployed graphs available to editors.
func (e *Engine) Spec() domain.Spec {
	return e.manager.Spec()
}

// Validate builds and initializes def in a throwaway scope.
func (e *Engine) Validate(ctx context.Context, def *domain.GraphDefinition) error {
	d, err := e.manager.Instantiate(ctx, def)
	if err != nil {
		return err
	}
	return d.Close()
}

// Run executes def once in a fresh scope: ref is triggered times times
// (none when ref is unwired) and the probe readings are returned.
func (e *Engine) Run(ctx context.Context, def *domain.GraphDefinition, ref domain.PortRef, times int) (readings []util.Reading, err error) {
	d, err := e.manager.Instantiate(ctx, def)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()

	if ref.Wired() {
		for i := 0; i < times; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := d.Scope.Trigger(ref); err != nil {
				return nil, fmt.Errorf("graph %q: trigger %s: %w", def.Name, ref, err)
			}
		}
	}
	return d.Probes(), nil
}

// RunParallel performs n independent Runs of def concurrently, each in its
// own scope. Results are indexed by run. The first failure cancels the rest.
func (e *Engine) RunParallel(ctx context.Context, def *domain.GraphDefinition, ref domain.PortRef, times, n int) ([][]util.Reading, error) {
	results := make([][]util.Reading, n)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			readings, err := e.Run(ctx, def, ref, times)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = readings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Watch returns a channel that signals when the source changes.
// Returns error if the source does not support watching.
func (e *Engine) Watch(ctx context.Context, source ports.GraphSource) (<-chan string, error) {
	if w, ok := source.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("source %T does not support watching", source)
}

// Shutdown shuts every deployment down.
func (e *Engine) Shutdown() error {
	return e.manager.Shutdown()
}
