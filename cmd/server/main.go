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

	"github.com/gin-gonic/gin"
	"github.com/p3tuh/notello/config"
	"github.com/p3tuh/notello/internal/authtoken"
	"github.com/p3tuh/notello/internal/bootstrap"
	"github.com/p3tuh/notello/internal/email"
	"github.com/p3tuh/notello/internal/events"
	"github.com/p3tuh/notello/internal/health"
	"github.com/p3tuh/notello/internal/infrastructure/postgres"
	"github.com/p3tuh/notello/internal/metrics"
	httptransport "github.com/p3tuh/notello/internal/transport/http"
	"github.com/p3tuh/notello/internal/transport/http/handler"
	"github.com/p3tuh/notello/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps, err := bootstrap.Open(ctx, cfg, "notello-server", logger)
	if err != nil {
		stop()
		log.Fatalf("%v", err)
	}
	defer deps.Close()

	var publisher events.Publisher = events.Nop{}
	if cfg.EventsEnabled {
		p, err := events.NewRedisStreamPublisher(deps.Redis, logger)
		if err != nil {
			stop()
			log.Fatalf("events: %v", err)
		}
		publisher = p
	}

	// Auth
	authUsecase := usecase.NewAuthUsecase(
		deps.Challenges,
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.EmailFrom, logger),
		authtoken.NewCodec([]byte(cfg.TokenSecret)),
		cfg.AppBaseURL,
		logger,
		usecase.WithEvents(publisher),
	)
	authHandler := handler.NewAuthHandler(authUsecase, cfg.CookieSecure, logger)

	// Notes
	noteUsecase := usecase.NewNoteUsecase(postgres.NewNoteRepository(deps.Pool))
	noteHandler := handler.NewNoteHandler(noteUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(deps.Pingers(), logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr: ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, httptransport.Handlers{
			Auth: authHandler,
			Note: noteHandler,
		}, authUsecase, httptransport.Options{HSTS: cfg.CookieSecure}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
