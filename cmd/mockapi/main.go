package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/branch-booking/internal/api/router"
	"github.com/wolfman30/branch-booking/internal/clock"
	appconfig "github.com/wolfman30/branch-booking/internal/config"
	"github.com/wolfman30/branch-booking/internal/mockapi"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting branch-booking mock API",
		"env", cfg.Env,
		"port", cfg.MockAPIPort,
	)

	store, err := mockapi.NewStore(clock.New(), mockapi.DefaultSchedule, mockapi.DefaultBranches())
	if err != nil {
		logger.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if err := mockapi.Seed(store, mockapi.DefaultUsers()); err != nil {
		logger.Error("failed to seed users", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(reg)

	handler := mockapi.NewHandler(mockapi.HandlerConfig{
		Store:    store,
		Secret:   cfg.MockAPIJWTSecret,
		TokenTTL: cfg.MockAPITokenTTL,
		Logger:   logger,
		Metrics:  serverMetrics,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Handler:            handler,
		Metrics:            serverMetrics,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.MockAPIPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
