package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"petavatar/internal/config"
	"petavatar/internal/infra"
	"petavatar/internal/jobstore"
	"petavatar/internal/notifier"
	"petavatar/internal/queue"
)

const eventPollBlock = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "notifier")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: open migration connection failed")
	}
	if err := jobstore.RunMigrations(ctx, migrateDB); err != nil {
		logger.Fatal().Err(err).Msg("notifier: migrations failed")
	}
	_ = migrateDB.Close()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("notifier: db connection failed")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	n := notifier.New(
		jobstore.NewPostgresStore(pool),
		queue.NewProcessingQueue(queue.NewRedisQueue(rdb, cfg.ProcessQueueKey)),
		logger,
	)

	events := queue.NewRedisQueue(rdb, cfg.UploadEventsKey)

	logger.Info().
		Str("events", cfg.UploadEventsKey).
		Str("queue", cfg.ProcessQueueKey).
		Msg("notifier started")
	if err := n.Run(ctx, events, eventPollBlock); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("notifier stopped with error")
	}
	logger.Info().Msg("notifier stopped")
}
