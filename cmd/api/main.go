package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/gemline-backend/api/controllers"
	"github.com/angelmondragon/gemline-backend/api/routes"
	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/db"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
	"github.com/angelmondragon/gemline-backend/pkg/migrate"
	"github.com/angelmondragon/gemline-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Static:      map[string]any{"env": cfg.App.Env},
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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else if cfg.Analytics.SharedCooldown() {
		logg.Error(context.Background(), "redis cooldown store requires redis", errors.New("redis not configured"))
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var cooldowns analytics.CooldownStore
	if cfg.Analytics.SharedCooldown() {
		cooldowns, err = analytics.NewRedisCooldownStore(redisClient, clock, analytics.CooldownPeriod)
		if err != nil {
			logg.Error(context.Background(), "failed to create cooldown store", err)
			os.Exit(1)
		}
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Store:      analytics.NewRepository(dbClient.DB()),
		Logger:     logg,
		Cooldowns:  cooldowns,
		Clock:      clock,
		Metrics:    metrics.NewAnalyticsMetrics(registry),
		StaleAfter: cfg.Analytics.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	cacheOpts := cache.Options{Clock: clock, Logger: logg, Metrics: metrics.NewCacheMetrics(registry)}
	if redisClient != nil {
		store, err := cache.NewRedisStore(redisClient, 0)
		if err != nil {
			logg.Error(context.Background(), "failed to create redis cache store", err)
			os.Exit(1)
		}
		cacheOpts.Persistent = store
	}
	widgetCache, err := cache.New(cacheOpts)
	if err != nil {
		logg.Error(context.Background(), "failed to create cache", err)
		os.Exit(1)
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Repo:      dashboard.NewRepository(dbClient.DB()),
		Analytics: analyticsService,
		Cache:     widgetCache,
		TTL:       cfg.Dashboard.WidgetsTTL,
		Clock:     clock,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dashboard service", err)
		os.Exit(1)
	}

	var redisPinger controllers.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"cooldown_store": cfg.Analytics.CooldownStore,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisPinger,
			Gatherer:  registry,
			HTTP:      metrics.NewHTTPMetrics(registry),
			Analytics: analyticsService,
			Dashboard: dashboardService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server stopped")
	}
}
