package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p3tuh/notello/config"
	"github.com/p3tuh/notello/internal/bootstrap"
	"github.com/p3tuh/notello/internal/health"
	"github.com/p3tuh/notello/internal/metrics"
	"github.com/p3tuh/notello/internal/sweeper"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps, err := bootstrap.Open(ctx, cfg, "notello-sweeper", logger)
	if err != nil {
		stop()
		log.Fatalf("%v", err)
	}
	defer deps.Close()

	metrics.Register()
	checker := health.NewChecker(deps.Pingers(), logger, prometheus.DefaultRegisterer)

	sw, err := sweeper.New(deps.Challenges, cfg.SweepSchedule, cfg.ChallengeRetention, logger)
	if err != nil {
		stop()
		log.Fatalf("sweeper: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sw.Start(ctx)
		close(done)
	}()

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("sweeper shut down")
}
