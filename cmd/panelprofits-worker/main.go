package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"panelprofits/internal/config"
	"panelprofits/internal/db"
	"panelprofits/internal/npc"
	"panelprofits/internal/store/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := postgres.New(pool)
	if err := st.ApplySchema(ctx); err != nil {
		logger.Error("apply schema failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	cycle := npc.NewCycle(st, logger, npc.WithMetrics(npc.NewMetrics(reg, "")))

	if cfg.RunOnce {
		res := cycle.Run(ctx)
		if res.Failed {
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.CycleEvery)
		defer ticker.Stop()

		logger.Info("worker started", "cycle_every", cfg.CycleEvery.String())
		for {
			select {
			case <-gctx.Done():
				logger.Info("worker shutdown")
				return nil
			case <-ticker.C:
				cycleCtx, cancel := context.WithTimeout(gctx, cfg.CycleEvery)
				cycle.Run(cycleCtx)
				cancel()
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("worker failed", "err", err)
		os.Exit(1)
	}
}
