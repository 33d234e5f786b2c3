package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/essenza-shop/essenza-backend/api/routes"
	"github.com/essenza-shop/essenza-backend/internal/apikeys"
	"github.com/essenza-shop/essenza-backend/internal/cart"
	"github.com/essenza-shop/essenza-backend/internal/catalog"
	"github.com/essenza-shop/essenza-backend/internal/discount"
	"github.com/essenza-shop/essenza-backend/internal/orders"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	"github.com/essenza-shop/essenza-backend/internal/stats"
	"github.com/essenza-shop/essenza-backend/pkg/config"
	"github.com/essenza-shop/essenza-backend/pkg/db"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/metrics"
	"github.com/essenza-shop/essenza-backend/pkg/migrate"
	"github.com/essenza-shop/essenza-backend/pkg/outbox"
	"github.com/essenza-shop/essenza-backend/pkg/pesapal"
	"github.com/essenza-shop/essenza-backend/pkg/redis"
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

	pesapalClient, err := pesapal.NewClient(context.Background(), cfg.Pesapal, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create pesapal client", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartRepo := cart.NewRepository(dbClient.DB())
	cartSvc, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	discountSvc, err := discount.NewService(discount.NewRepository(dbClient.DB()), ordersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		ordersRepo,
		pesapalClient,
		dbClient,
		outboxSvc,
		logg,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(
		ordersRepo,
		cartRepo,
		catalogRepo,
		discountSvc,
		dbClient,
		outboxSvc,
		paymentsSvc,
		logg,
		cfg.Pesapal.HTTPTimeout,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	statsRepo, err := stats.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create stats repository", err)
		os.Exit(1)
	}
	statsSvc, err := stats.NewService(statsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats service", err)
		os.Exit(1)
	}

	apiKeysRepo := apikeys.NewRepository(dbClient.DB())
	apiKeysSvc, err := apikeys.NewService(apiKeysRepo, cfg.APIKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create api key service", err)
		os.Exit(1)
	}

	// Gateway IPN registration is best effort. Without it the shop still sells;
	// payment confirmations arrive once a later restart or an admin registers
	// the callback URL.
	if cfg.Pesapal.IPNNotifyURL != "" {
		if _, err := paymentsSvc.RegisterCallbackURL(context.Background(), cfg.Pesapal.IPNNotifyURL); err != nil {
			logg.Warn(
				logg.WithField(context.Background(), "error", err.Error()),
				"gateway callback registration failed, continuing without it",
			)
		}
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
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Catalog:   catalogSvc,
			Cart:      cartSvc,
			Discounts: discountSvc,
			Orders:    ordersSvc,
			Payments:  paymentsSvc,
			Stats:     statsSvc,
			APIKeys:   apiKeysSvc,
			APIKeyDB:  apiKeysRepo,
			Metrics:   promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
