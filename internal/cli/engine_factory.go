package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/flow"
	"github.com/aretw0/flow/internal/config"
	"github.com/aretw0/flow/pkg/adapters/file"
	"github.com/aretw0/flow/pkg/adapters/memory"
	"github.com/aretw0/flow/pkg/adapters/process"
	"github.com/aretw0/flow/pkg/adapters/redis"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/nodes"
	"github.com/aretw0/flow/pkg/persistence/middleware"
	"github.com/aretw0/flow/pkg/ports"
)

// NewEngine initializes an engine with standard CLI conventions: the store
// and locker selected by cfg, the process tools listed in cfg.Tools, and
// debug hooks when the logger is enabled for debug.
func NewEngine(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...flow.Option) (*flow.Engine, error) {
	opts := []flow.Option{flow.WithLogger(logger)}

	// 1. Store & Locker
	store, locker, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	opts = append(opts, flow.WithStore(store))
	if locker != nil {
		opts = append(opts, flow.WithLocker(locker, cfg.LockTTL))
	}

	// 2. Process tools
	tools, err := process.LoadTools(cfg.Tools)
	if err != nil {
		return nil, err
	}
	if len(tools) > 0 {
		cat := nodes.Catalog()
		process.Register(cat)
		opts = append(opts,
			flow.WithCatalog(cat),
			flow.WithImplementations(process.NewRunner(process.WithTools(tools))),
		)
		logger.Debug("process tools loaded", "count", len(tools))
	}

	// 3. Hooks
	if logger.Enabled(ctx, slog.LevelDebug) {
		opts = append(opts, flow.WithHooks(createDebugHooks(logger)))
	}

	return flow.New(append(opts, extra...)...), nil
}

func createStore(ctx context.Context, cfg config.Config) (ports.GraphStore, ports.DistributedLocker, error) {
	switch cfg.Store {
	case config.StoreMemory, config.StoreLoam:
		// Loam repositories are read-only graph sources; deployments stay in memory.
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		return file.NewStore(cfg.StateDir), nil, nil
	case config.StoreRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		if err := store.Client().Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return store, redis.NewLocker(store.Client(), cfg.Redis.Prefix+"lock:"), nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// createDebugHooks logs every runtime event at debug level.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGraphInitialize: func(_ context.Context, ev *domain.GraphEvent) {
			logger.Debug("graph initialize", "graph", ev.GraphName, "scope", ev.ScopeID, "nodes", ev.Nodes, "error", ev.Err)
		},
		OnGraphShutdown: func(_ context.Context, ev *domain.GraphEvent) {
			logger.Debug("graph shutdown", "graph", ev.GraphName, "scope", ev.ScopeID, "error", ev.Err)
		},
		OnNodeInstall: func(_ context.Context, ev *domain.NodeEvent) {
			logger.Debug("node install", "kind", ev.NodeKind, "implementation", ev.Implementation, "scope", ev.ScopeID)
		},
		OnSignal: func(_ context.Context, ev *domain.SignalEvent) {
			logger.Debug("signal", "ref", ev.Ref, "consumers", ev.Consumers, "scope", ev.ScopeID, "error", ev.Err)
		},
	}
}
