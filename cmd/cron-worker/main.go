package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/gemline-backend/internal/analytics"
	"github.com/angelmondragon/gemline-backend/internal/cron"
	"github.com/angelmondragon/gemline-backend/internal/dashboard"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/db"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/metrics"
	"github.com/angelmondragon/gemline-backend/pkg/migrate"
	"github.com/angelmondragon/gemline-backend/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	only := flag.String("jobs", "", "comma-separated job names for -once (default: all)")
	flag.Parse()

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

	clock := clockwork.NewRealClock()
	var (
		redisClient *redis.Client
		lock        cron.Lock = &cron.LocalLock{}
		cooldowns   analytics.CooldownStore
	)
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

		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockEnv(cfg.App.Env)), 0)
		if err != nil {
			logg.Error(context.Background(), "failed to create cron lock", err)
			os.Exit(1)
		}
		if cfg.Analytics.SharedCooldown() {
			cooldowns, err = analytics.NewRedisCooldownStore(redisClient, clock, analytics.CooldownPeriod)
			if err != nil {
				logg.Error(context.Background(), "failed to create cooldown store", err)
				os.Exit(1)
			}
		}
	} else if cfg.Analytics.SharedCooldown() {
		logg.Error(context.Background(), "redis cooldown store requires redis", errors.New("redis not configured"))
		os.Exit(1)
	}

	analyticsService, err := analytics.NewService(analytics.ServiceParams{
		Store:      analytics.NewRepository(dbClient.DB()),
		Logger:     logg,
		Cooldowns:  cooldowns,
		Clock:      clock,
		Metrics:    metrics.NewAnalyticsMetrics(prometheus.DefaultRegisterer),
		StaleAfter: cfg.Analytics.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	refreshJob, err := cron.NewAnalyticsRefreshJob(cron.AnalyticsRefreshJobParams{
		Logger:    logg,
		Analytics: analyticsService,
		Actor:     cfg.Cron.Actor,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics refresh job", err)
		os.Exit(1)
	}
	registry := cron.NewRegistry(refreshJob)

	// Warming only helps when the widget cache is shared with the api through redis.
	if redisClient != nil {
		store, err := cache.NewRedisStore(redisClient, 0)
		if err != nil {
			logg.Error(context.Background(), "failed to create redis cache store", err)
			os.Exit(1)
		}
		widgetCache, err := cache.New(cache.Options{Persistent: store, Clock: clock, Logger: logg})
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
		warmJob, err := cron.NewWidgetsWarmJob(cron.WidgetsWarmJobParams{Logger: logg, Dashboard: dashboardService})
		if err != nil {
			logg.Error(context.Background(), "failed to create widgets warm job", err)
			os.Exit(1)
		}
		registry.Register(warmJob)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
		Clock:    clock,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
		"interval":    cfg.Cron.Interval.String(),
	})
	if *once {
		if err := service.RunOnce(ctx, splitJobs(*only)...); err != nil {
			logg.Error(ctx, "cron.once_failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "cron.once_completed")
		return
	}

	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockEnv(env string) string {
	if env == "" {
		return "local"
	}
	return env
}

func splitJobs(raw string) []string {
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
