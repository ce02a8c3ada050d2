package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gemline-backend/internal/console"
	"github.com/angelmondragon/gemline-backend/pkg/adminclient"
	"github.com/angelmondragon/gemline-backend/pkg/auth"
	"github.com/angelmondragon/gemline-backend/pkg/cache"
	"github.com/angelmondragon/gemline-backend/pkg/config"
	"github.com/angelmondragon/gemline-backend/pkg/enums"
	"github.com/angelmondragon/gemline-backend/pkg/logger"
	"github.com/angelmondragon/gemline-backend/pkg/redis"
)

// consoleTokenTTL bounds tokens minted on the fly when no token is configured.
const consoleTokenTTL = 15 * time.Minute

func main() {
	_ = godotenv.Load()

	fresh := flag.Bool("fresh", false, "start from a hard reload: drop the persistent cache first")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: admin-console [-fresh] <command> [flags]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConsole()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "admin-console",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      logger.FormatConsole,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithActor(ctx, cfg.Actor)

	if err := run(ctx, cfg, logg, *fresh, flag.Args()); err != nil {
		logg.Error(ctx, "admin console command failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ConsoleConfig, logg *logger.Logger, fresh bool, args []string) (err error) {
	clock := clockwork.NewRealClock()

	store, closer, err := openStore(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closer.Close())
	}()

	opts := cache.Options{Clock: clock, Logger: logg}
	if store != nil {
		opts.Persistent = store
	}
	clientCache, err := cache.New(opts)
	if err != nil {
		return err
	}

	token, err := resolveToken(cfg, clock.Now())
	if err != nil {
		return err
	}
	client, err := adminclient.New(adminclient.Params{
		BaseURL:         cfg.BaseURL,
		Token:           token,
		Timeout:         cfg.Timeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
		Logger:          logg,
	})
	if err != nil {
		return err
	}

	c, err := console.New(console.Params{
		API:    client,
		Cache:  clientCache,
		Out:    os.Stdout,
		Logger: logg,
		Clock:  clock,
		JWT:    cfg.JWT.AsJWTConfig(),
	})
	if err != nil {
		return err
	}

	kind := cache.LoadNavigate
	if fresh || cfg.ClearOnStart {
		kind = cache.LoadReload
	}
	c.Start(ctx, kind)

	return c.Run(ctx, args)
}

// openStore returns the persistent mirror for the configured backend; the
// "none" backend keeps the cache memory-only.
func openStore(ctx context.Context, cfg *config.ConsoleConfig, logg *logger.Logger) (cache.PersistentStore, io.Closer, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendBadger:
		if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create cache dir: %w", err)
		}
		store, err := cache.OpenBadger(cache.BadgerParams{Dir: cfg.CacheDir})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.CacheBackendRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewRedisStore(client, 0)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return store, client, nil
	case config.CacheBackendNone:
		return nil, io.NopCloser(nil), nil
	default:
		return nil, nil, errors.New("unknown cache backend " + cfg.CacheBackend)
	}
}

// resolveToken prefers the configured token and otherwise mints a short-lived
// one when the signing secret is available locally.
func resolveToken(cfg *config.ConsoleConfig, now time.Time) (string, error) {
	if cfg.Token != "" || cfg.JWT.Secret == "" {
		return cfg.Token, nil
	}
	return auth.MintAccessToken(cfg.JWT.AsJWTConfig(), now, auth.AccessTokenPayload{
		Subject: uuid.NewString(),
		Email:   cfg.Actor,
		Role:    enums.AdminRoleAdmin,
		TTL:     consoleTokenTTL,
	})
}
