package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/sapsync/cmd/sapsync/cli"
	"github.com/odyssey-erp/sapsync/internal/app"
	"github.com/odyssey-erp/sapsync/internal/platform/cache"
	"github.com/odyssey-erp/sapsync/internal/platform/db"
	"github.com/odyssey-erp/sapsync/migrations"
)

type migrator struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func (m migrator) Migrate(ctx context.Context) (int, error) {
	return db.Migrate(ctx, m.pool, migrations.FS, m.logger)
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return cli.ExitFatal
	}

	logger := app.NewLoggerTo(cfg, os.Stderr)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		return cli.ExitFatal
	}
	defer pool.Close()

	// The lock is optional for one-off runs; an unreachable redis only
	// disables it.
	var redisClient redis.UniversalClient
	if cfg.SyncLockEnabled {
		client, err := cache.New(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, running without sync lock", slog.Any("error", err))
		} else {
			redisClient = client
			defer client.Close()
		}
	}

	components, err := app.NewComponents(cfg, app.Deps{Pool: pool, Redis: redisClient, Logger: logger})
	if err != nil {
		logger.Error("wire components", slog.Any("error", err))
		return cli.ExitFatal
	}

	command, err := cli.New(components.Sync, components.Finance, migrator{pool: pool, logger: logger})
	if err != nil {
		logger.Error("init cli", slog.Any("error", err))
		return cli.ExitFatal
	}
	return command.Execute(ctx, os.Args[1:], cli.Options{Stdout: os.Stdout, Stderr: os.Stderr})
}
