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

	"mattepass-service/internal/app"
	"mattepass-service/internal/config"
	"mattepass-service/internal/metrics"
	"mattepass-service/internal/pkg/clock"
	"mattepass-service/internal/pkg/lock"
	"mattepass-service/internal/repository/postgres"
	"mattepass-service/internal/scheduler"
	subscriptionUsecase "mattepass-service/internal/service/subscription"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[CRON] No .env file found, relying on system env vars")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	infra, err := app.Connect(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer infra.Close()

	metrics.MustRegister()

	lifecycle := subscriptionUsecase.NewLifecycleService(
		postgres.NewDB(infra.Pool),
		postgres.NewSubscriptionRepository(infra.Pool),
		postgres.NewPaymentRepository(infra.Pool),
		postgres.NewPlanRepository(infra.Pool),
		lock.NewLocker(infra.Redis),
		logger,
	)

	sched := scheduler.NewScheduler(lifecycle, clock.System(), cfg.LifecycleSchedule, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	logger.Info("cron worker started")

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.CronMetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping cron worker")
	<-sched.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(ctx)
	logger.Info("cron worker stopped")
}
