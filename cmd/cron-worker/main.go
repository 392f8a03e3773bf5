package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bomjesus/armazem-backend/internal/alerts"
	"github.com/bomjesus/armazem-backend/internal/cron"
	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/projection"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db"
	"github.com/bomjesus/armazem-backend/pkg/logger"
	"github.com/bomjesus/armazem-backend/pkg/metrics"
	"github.com/bomjesus/armazem-backend/pkg/migrate"
	"github.com/bomjesus/armazem-backend/pkg/redis"
)

const lockKeyFormat = "armazem:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svc, err := buildWorker(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to wire worker", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "env", cfg.App.Env), "starting cron worker")
	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "cron worker shut down gracefully")
}

func buildWorker(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*cron.Service, error) {
	gormDB := dbClient.DB()

	eventsRepo := events.NewRepository(gormDB)
	lotsRepo := lots.NewRepository(gormDB)
	lossesRepo := losses.NewRepository(gormDB)
	returnsRepo := returns.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	alertsRepo := alerts.NewRepository(gormDB)

	projectionSvc, err := projection.NewService(projection.ServiceParams{
		Events:  eventsRepo,
		Lots:    lotsRepo,
		Losses:  lossesRepo,
		Returns: returnsRepo,
		Issues:  reviewsRepo,
		Tx:      dbClient,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	alertsSvc, err := alerts.NewService(alerts.ServiceParams{
		Repo:    alertsRepo,
		Events:  eventsRepo,
		Losses:  lossesRepo,
		Returns: returnsRepo,
		Email:   alerts.NewSMTPSender(cfg.SMTP),
		Push:    alerts.NewWebPushSender(cfg.WebPush),
		WebPush: cfg.WebPush,
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	if err := alertsSvc.Seed(context.Background()); err != nil {
		return nil, err
	}

	processJob, err := cron.NewProcessEventsJob(projectionSvc, eventsRepo, logg, cfg.Jobs.ProcessBatchSize, cfg.Jobs.ProcessInterval)
	if err != nil {
		return nil, err
	}
	refreshJob, err := cron.NewRefreshViewsJob(gormDB, logg, cfg.Jobs.RefreshInterval)
	if err != nil {
		return nil, err
	}
	alertsJob, err := cron.NewRunAlertsJob(alertsSvc, logg, cfg.Jobs.AlertsInterval)
	if err != nil {
		return nil, err
	}
	maturationJob, err := cron.NewMaturationJob(lotsRepo, logg, cfg.Jobs.MaturationInterval)
	if err != nil {
		return nil, err
	}

	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, cfg.App.Env), 0)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(processJob, refreshJob, alertsJob, maturationJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
}
