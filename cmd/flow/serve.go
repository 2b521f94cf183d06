package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/flow"
	"github.com/aretw0/flow/internal/cli"
	httpAdapter "github.com/aretw0/flow/pkg/adapters/http"
	"github.com/aretw0/flow/pkg/observability"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP management server",
	Long: `Restores the stored deployments, deploys the graphs directory and exposes
the graphs over a JSON API with Server-Sent Events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := cfg.HTTP.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		watch, _ := cmd.Flags().GetBool("watch")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		metrics := observability.NewMetrics()
		streams := httpAdapter.NewStreamManager(logger)
		eng, err := cli.NewEngine(ctx, cfg, logger,
			flow.WithMetrics(metrics),
			flow.WithHooks(streams.Hooks()),
		)
		if err != nil {
			return err
		}
		defer eng.Shutdown()

		// 1. Deployments
		if err := eng.Restore(ctx); err != nil {
			logger.Warn("Some stored graphs could not be restored", "err", err)
		}
		src, err := cli.OpenSource(cfg, cfg.GraphsDir)
		if err != nil {
			return err
		}
		if src != nil {
			if err := eng.Load(ctx, src); err != nil {
				logger.Warn("Some graphs could not be deployed", "dir", cfg.GraphsDir, "err", err)
			}
			if watch {
				go func() {
					if err := cli.Watch(ctx, eng, src, logger); err != nil {
						logger.Warn("Watch disabled", "err", err)
					}
				}()
			}
		}

		// 2. Server
		handler := httpAdapter.NewHandler(eng.Manager(),
			httpAdapter.WithMetrics(metrics),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithVersion(flow.Version),
			httpAdapter.WithLogger(logger),
		)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting flow server", "addr", srv.Addr, "graphs", len(eng.Manager().List()))
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "err", err)
				}
			}
			logger.Info("flow server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
	serveCmd.Flags().BoolP("watch", "w", false, "Redeploy the graphs directory when it changes (loam store)")
}
