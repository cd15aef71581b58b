package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/feastlyapp/feastly-backend/api/routes"
	cartsvc "github.com/feastlyapp/feastly-backend/internal/cart"
	"github.com/feastlyapp/feastly-backend/internal/catalog"
	"github.com/feastlyapp/feastly-backend/internal/checkout"
	"github.com/feastlyapp/feastly-backend/internal/orders"
	"github.com/feastlyapp/feastly-backend/pkg/config"
	"github.com/feastlyapp/feastly-backend/pkg/db"
	"github.com/feastlyapp/feastly-backend/pkg/logger"
	"github.com/feastlyapp/feastly-backend/pkg/metrics"
	"github.com/feastlyapp/feastly-backend/pkg/migrate"
	"github.com/feastlyapp/feastly-backend/pkg/outbox"
	"github.com/feastlyapp/feastly-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	notifier := catalog.NewNotifier(redisClient, cfg.Catalog.ChangeChannel, logg)
	mirror := catalog.NewMirror(catalogRepo, notifier, logg, catalog.MirrorOptions{
		ReloadTimeout:  cfg.Catalog.ReloadTimeout,
		ResubscribeMin: cfg.Catalog.ResubscribeMin,
		ResubscribeMax: cfg.Catalog.ResubscribeMax,
	})
	go func() {
		if err := mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "catalog mirror stopped unexpectedly", err)
		}
	}()

	cartStore := cartsvc.NewStore(redisClient, cfg.Session.CartTTL, logg)
	cartManager := cartsvc.NewManager(cartStore, logg, cartsvc.ManagerOptions{
		CartTTL:         cfg.Session.CartTTL,
		JanitorInterval: cfg.Session.JanitorInterval,
	})
	go func() {
		if err := cartManager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "cart janitor stopped unexpectedly", err)
		}
	}()

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	catalogSvc := catalog.NewService(dbClient, catalogRepo, outboxSvc, notifier, logg)

	checkoutSvc, err := checkout.NewService(dbClient, orders.NewRepository(dbClient.DB()), outboxSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Mirror:      mirror,
			CatalogSvc:  catalogSvc,
			CartManager: cartManager,
			Checkout:    checkoutSvc,
			HTTPMetrics: httpMetrics,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
