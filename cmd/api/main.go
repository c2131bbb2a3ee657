package main

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshharvest/market-backend/api/routes"
	"github.com/freshharvest/market-backend/internal/catalog"
	sessionsvc "github.com/freshharvest/market-backend/internal/session"
	"github.com/freshharvest/market-backend/pkg/config"
	"github.com/freshharvest/market-backend/pkg/kv"
	"github.com/freshharvest/market-backend/pkg/logger"
	"github.com/freshharvest/market-backend/pkg/metrics"
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

	store, err := openStore(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open storage", err)
		os.Exit(1)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logg.Error(context.Background(), "error closing storage", err)
			}
		}()
	}

	products, err := catalog.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load product catalog", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	sessions, err := sessionsvc.NewManager(sessionsvc.ManagerParams{
		Store:           store,
		Catalog:         products,
		Logger:          logg,
		Metrics:         storefrontMetrics,
		CartMaxQuantity: cfg.Cart.MaxQuantity,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"storage": cfg.Storage.NormalizedDriver(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, store, products, sessions, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (kv.Store, error) {
	switch cfg.Storage.NormalizedDriver() {
	case config.StorageDriverSQLite:
		return kv.NewSQLite(ctx, cfg.Storage, logg)
	case config.StorageDriverRedis:
		return kv.NewRedis(ctx, cfg.Redis, cfg.Storage, logg)
	default:
		return kv.NewMemory(), nil
	}
}
