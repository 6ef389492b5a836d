package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klyr/redirector/internal/config"
	"github.com/klyr/redirector/internal/gateway"
	"github.com/klyr/redirector/internal/logging"
	"github.com/klyr/redirector/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var configPath string
	var listenOverride string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the redirector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return errors.New("config path is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listenOverride != "" {
				cfg.Server.Listen = listenOverride
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), configPath, cfg, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&listenOverride, "listen", "", "Override server.listen")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload rules and templates when the config file changes")

	return cmd
}

func runServer(ctx context.Context, configPath string, cfg *config.Config, watch bool) error {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.Logging.DecisionLog != "" {
		decisionLog, closer, err := logging.OpenDecisionLog(cfg.ResolvePath(cfg.Logging.DecisionLog))
		if err != nil {
			return err
		}
		defer func() { _ = closer() }()
		gw.SetDecisionLogger(decisionLog)
	}

	metrics, adminSrv := startAdminServer(cfg, logger)
	gw.SetMetrics(metrics)
	defer func() {
		if adminSrv != nil {
			_ = adminSrv.Shutdown(context.Background())
		}
	}()

	signalCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		listen := cfg.Server.Listen
		watcher, err := config.NewWatcher(configPath, func(next *config.Config) error {
			if next.Server.Listen != listen {
				logger.Warn("server.listen changed, restart required to apply",
					zap.String("current", listen),
					zap.String("configured", next.Server.Listen),
				)
			}
			if err := gw.Reload(next); err != nil {
				return err
			}
			metrics.ConfigReloaded(nil, gw.Rules().Len())
			return nil
		}, config.WithWatchLogger(logger), config.WithErrorFunc(func(err error) {
			metrics.ConfigReloaded(err, 0)
		}))
		if err != nil {
			return err
		}
		if err := watcher.Start(signalCtx); err != nil {
			return err
		}
		defer func() {
			stop()
			watcher.Wait()
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           gw,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Listen), zap.Bool("tls", cfg.Server.TLS.Enabled))
		if cfg.Server.TLS.Enabled {
			serverErr <- srv.ListenAndServeTLS(cfg.ResolvePath(cfg.Server.TLS.CertFile), cfg.ResolvePath(cfg.Server.TLS.KeyFile))
			return
		}
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-signalCtx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startAdminServer(cfg *config.Config, logger *zap.Logger) (*observability.Metrics, *http.Server) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	srv := &http.Server{
		Addr:              cfg.Metrics.Listen,
		Handler:           gateway.NewAdminMux(metrics.Handler(reg)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return metrics, srv
}
