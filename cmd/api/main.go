package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftora/storefront-backend/api/controllers"
	"github.com/craftora/storefront-backend/api/routes"
	"github.com/craftora/storefront-backend/internal/affiliates"
	"github.com/craftora/storefront-backend/internal/customers"
	"github.com/craftora/storefront-backend/internal/discounts"
	"github.com/craftora/storefront-backend/internal/gateway"
	"github.com/craftora/storefront-backend/internal/giftcards"
	"github.com/craftora/storefront-backend/internal/inventory"
	"github.com/craftora/storefront-backend/internal/orders"
	"github.com/craftora/storefront-backend/internal/settlement"
	"github.com/craftora/storefront-backend/internal/stores"
	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/db"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/metrics"
	"github.com/craftora/storefront-backend/pkg/migrate"
	"github.com/craftora/storefront-backend/pkg/outbox"
	"github.com/craftora/storefront-backend/pkg/paypal"
	"github.com/craftora/storefront-backend/pkg/redis"
	"github.com/craftora/storefront-backend/pkg/square"
	"github.com/craftora/storefront-backend/pkg/stripe"
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

	paypalClient, err := paypal.NewClient(cfg.PayPal, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paypal client", err)
		os.Exit(1)
	}
	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}
	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	registry := gateway.NewRegistry(
		gateway.NewPayPalNormalizer(paypalClient, logg),
		gateway.NewStripeNormalizer(stripeClient, logg),
		gateway.NewSquareNormalizer(squareClient, logg),
	)

	promRegistry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	ordersService, err := orders.NewService(orders.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(inventory.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	giftCardService, err := giftcards.NewService(giftcards.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gift card service", err)
		os.Exit(1)
	}
	customerService, err := customers.NewService(customers.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create customer service", err)
		os.Exit(1)
	}
	discountService, err := discounts.NewService(discounts.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}
	affiliateService, err := affiliates.NewService(affiliates.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create affiliate service", err)
		os.Exit(1)
	}

	orchestrator, err := settlement.NewOrchestrator(settlement.OrchestratorDeps{
		Tx:                dbClient,
		Inventory:         inventoryService,
		GiftCards:         giftCardService,
		Customers:         customerService,
		Discounts:         discountService,
		Affiliates:        affiliateService,
		Events:            outboxService,
		Metrics:           settlementMetrics,
		Logger:            logg,
		LowStockThreshold: cfg.Settlement.LowStockThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger orchestrator", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.Deps{
		Registry:     registry,
		Orders:       ordersService,
		Orchestrator: orchestrator,
		Tx:           dbClient,
		Events:       outboxService,
		Marker:       redisClient,
		Metrics:      settlementMetrics,
		Logger:       logg,
		Config:       cfg.Settlement,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	storeService, err := stores.NewService(stores.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create store service", err)
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
			Config:     cfg,
			Logger:     logg,
			Stores:     storeService,
			Settlement: settlementService,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Registry: promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
