package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kidwatch/jwks-strategy/config"
	"github.com/kidwatch/jwks-strategy/internal/server"
	"github.com/kidwatch/jwks-strategy/jwks"
	"github.com/kidwatch/jwks-strategy/telemetry"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		configPath string
		listen     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start every configured strategy and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			return serve(ctx, root, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "strategies.yaml", "strategies file (env JWKS_CONFIG)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overrides server.listen (env JWKS_LISTEN)")
	return cmd
}

func serve(ctx context.Context, root *rootOptions, cfg *config.File) error {
	logger, err := root.logger(cfg.Logger)
	if err != nil {
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := telemetry.NewPrometheusMetrics(promRegistry)
	if err != nil {
		return err
	}

	registry := jwks.NewRegistry(jwks.WithLogger(logger), jwks.WithMetrics(metrics))
	defer registry.StopAll()

	if err := registry.StartAll(ctx, cfg.StrategyOptions()); err != nil {
		return fmt.Errorf("start strategies: %w", err)
	}
	logger.WithField("strategies", registry.Names()).Info("strategies started")

	router, err := server.NewRouter(registry, promRegistry, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Server.Listen, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("listen", cfg.Server.Listen).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
