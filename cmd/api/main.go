package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giftree-kr/giftree-backend/api/routes"
	"github.com/giftree-kr/giftree-backend/internal/checkout"
	"github.com/giftree-kr/giftree-backend/internal/coupons"
	"github.com/giftree-kr/giftree-backend/internal/gifticons"
	"github.com/giftree-kr/giftree-backend/internal/payments"
	"github.com/giftree-kr/giftree-backend/internal/purchases"
	"github.com/giftree-kr/giftree-backend/pkg/config"
	"github.com/giftree-kr/giftree-backend/pkg/db"
	"github.com/giftree-kr/giftree-backend/pkg/logger"
	"github.com/giftree-kr/giftree-backend/pkg/metrics"
	"github.com/giftree-kr/giftree-backend/pkg/migrate"
	"github.com/giftree-kr/giftree-backend/pkg/outbox"
	"github.com/giftree-kr/giftree-backend/pkg/redis"
	"github.com/giftree-kr/giftree-backend/pkg/square"
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

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}
	initializer, err := payments.NewSquareInitializer(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment initializer", err)
		os.Exit(1)
	}
	widget, err := payments.NewWidget(initializer, cfg.Checkout.WidgetInitTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment widget", err)
		os.Exit(1)
	}

	handoff, err := checkout.NewHandoffStore(redisClient, cfg.Checkout.HandoffTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create handoff store", err)
		os.Exit(1)
	}

	unitRepo := gifticons.NewRepository(dbClient.DB())
	couponRepo := coupons.NewRepository(dbClient.DB())
	purchaseRepo := purchases.NewRepository(dbClient.DB())
	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	checkoutManager, err := checkout.NewManager(
		dbClient,
		unitRepo,
		couponRepo,
		purchaseRepo,
		widget,
		handoff,
		events,
		checkoutMetrics,
		logg,
		cfg.Checkout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout manager", err)
		os.Exit(1)
	}

	gifticonService, err := gifticons.NewService(unitRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gifticon service", err)
		os.Exit(1)
	}
	couponService, err := coupons.NewService(couponRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}
	purchaseService, err := purchases.NewService(purchaseRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create purchase service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gifticonService,
			couponService,
			purchaseService,
			checkoutManager,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "api server shutdown error", err)
		}
	}
}
