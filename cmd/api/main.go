package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/storefront-labs/storefront-backend/api/routes"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	"github.com/storefront-labs/storefront-backend/internal/orders"
	"github.com/storefront-labs/storefront-backend/internal/products"
	"github.com/storefront-labs/storefront-backend/internal/stores"
	stripewebhook "github.com/storefront-labs/storefront-backend/internal/webhooks/stripe"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/migrate"
	"github.com/storefront-labs/storefront-backend/pkg/redis"
	"github.com/storefront-labs/storefront-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		stores.NewRepository(dbClient.DB()),
		products.NewRepository(dbClient.DB()),
		ordersRepo,
		stripeClient,
		cfg.Storefront,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		OrdersRepo: ordersRepo,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			Database:           dbClient,
			Cache:              redisClient,
			CheckoutService:    checkoutService,
			StripeClient:       stripeClient,
			StripeWebhookSvc:   webhookService,
			StripeWebhookGuard: webhookGuard,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
