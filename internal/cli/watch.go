package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/flow"
	"github.com/aretw0/flow/pkg/ports"
)

// reloadDebounce collapses bursts of file events into one reload.
const reloadDebounce = 200 * time.Millisecond

// Watch redeploys every graph of source whenever it reports a change, until
// ctx is done. Failed reloads are logged and keep the running deployments.
func Watch(ctx context.Context, eng *flow.Engine, source ports.GraphSource, logger *slog.Logger) error {
	watchCh, err := eng.Watch(ctx, source)
	if err != nil {
		return err
	}
	logger.Info("Starting Watcher")

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watchCh:
			if !ok {
				return nil
			}
			logger.Debug("Change detected", "event", event)
			timer = time.After(reloadDebounce)
		case <-timer:
			timer = nil
			if err := eng.Load(ctx, source); err != nil {
				logger.Error("Reload failed", "err", err)
				continue
			}
			logger.Info("Graphs reloaded")
		}
	}
}
