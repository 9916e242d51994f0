package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/cron"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/metrics"
	"github.com/giftree-kr/giftree-backend/pkg/migrate"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/redis"
)

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

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	unitRepo := gifticons.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	holdExpiry, err := cron.NewHoldExpiryJob(cron.HoldExpiryJobParams{
		Logger:  logg,
		DB:      dbClient,
		Units:   unitRepo,
		Outbox:  events,
		Metrics: checkoutMetrics,
		HoldTTL: cfg.Checkout.HoldTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold expiry job", err)
		os.Exit(1)
	}
	unitExpiry, err := cron.NewUnitExpiryJob(cron.UnitExpiryJobParams{
		Logger: logg,
		DB:     dbClient,
		Units:  unitRepo,
		Outbox: events,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create unit expiry job", err)
		os.Exit(1)
	}
	couponExpiry, err := cron.NewCouponExpiryJob(cron.CouponExpiryJobParams{
		Logger:  logg,
		DB:      dbClient,
		Coupons: couponRepo,
		Outbox:  events,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon expiry job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(holdExpiry, unitExpiry, couponExpiry)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
