package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/bomjesus/armazem-backend/api/routes"
	"github.com/bomjesus/armazem-backend/internal/alerts"
	"github.com/bomjesus/armazem-backend/internal/dashboard"
	"github.com/bomjesus/armazem-backend/internal/events"
	"github.com/bomjesus/armazem-backend/internal/losses"
	"github.com/bomjesus/armazem-backend/internal/lots"
	"github.com/bomjesus/armazem-backend/internal/projection"
	"github.com/bomjesus/armazem-backend/internal/returns"
	"github.com/bomjesus/armazem-backend/internal/reviews"
	"github.com/bomjesus/armazem-backend/internal/rules"
	"github.com/bomjesus/armazem-backend/pkg/config"
	"github.com/bomjesus/armazem-backend/pkg/db"
	"github.com/bomjesus/armazem-backend/pkg/logger"
	"github.com/bomjesus/armazem-backend/pkg/migrate"
	"github.com/bomjesus/armazem-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	if err := svcs.Alerts.Seed(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to seed alert rules", err)
		os.Exit(1)
	}

	addr := ":" + cfg.App.Port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gormDB := dbClient.DB()

	eventsRepo := events.NewRepository(gormDB)
	lotsRepo := lots.NewRepository(gormDB)
	lossesRepo := losses.NewRepository(gormDB)
	returnsRepo := returns.NewRepository(gormDB)
	reviewsRepo := reviews.NewRepository(gormDB)
	rulesRepo := rules.NewRepository(gormDB)
	alertsRepo := alerts.NewRepository(gormDB)

	rulesSvc, err := rules.NewService(rulesRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}
	eventsSvc, err := events.NewService(events.ServiceParams{
		Repo:   eventsRepo,
		Rules:  rulesSvc,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
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
		return routes.Services{}, err
	}
	lotsSvc, err := lots.NewService(lots.ServiceParams{
		Repo:   lotsRepo,
		Events: eventsRepo,
		Issues: reviewsRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	lossesSvc, err := losses.NewService(losses.ServiceParams{
		Repo:   lossesRepo,
		Lots:   lotsRepo,
		Events: eventsRepo,
		Issues: reviewsRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	returnsSvc, err := returns.NewService(returns.ServiceParams{
		Repo:   returnsRepo,
		Lots:   lotsRepo,
		Events: eventsRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	reviewsSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:   reviewsRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}
	dashboardSvc, err := dashboard.NewService(dashboard.ServiceParams{
		Repo:   dashboard.NewRepository(gormDB),
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Events:     eventsSvc,
		Projection: projectionSvc,
		Lots:       lotsSvc,
		Losses:     lossesSvc,
		Returns:    returnsSvc,
		Reviews:    reviewsSvc,
		Alerts:     alertsSvc,
		Rules:      rulesSvc,
		Dashboard:  dashboardSvc,
	}, nil
}
