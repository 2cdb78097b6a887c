package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"petavatar/internal/agent"
	"petavatar/internal/blob"
	"petavatar/internal/config"
	"petavatar/internal/infra"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
	"petavatar/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: open migration connection failed")
	}
	if err := jobstore.RunMigrations(ctx, migrateDB); err != nil {
		logger.Fatal().Err(err).Msg("worker: migrations failed")
	}
	_ = migrateDB.Close()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	var bucket blob.Bucket
	if cfg.StoragePath != "" {
		bucket, err = blob.NewFileBucket(cfg.StoragePath, cfg.StorageBaseURL)
	} else {
		bucket, err = blob.NewS3Bucket(ctx, blob.S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
		})
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: object storage setup failed")
	}

	invoker, err := agent.NewOpenAIInvoker(agent.OpenAIOptions{
		APIKey:     cfg.OpenAIAPIKey,
		ChatModel:  cfg.OpenAIChatModel,
		ImageModel: cfg.OpenAIImageModel,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: agent setup failed")
	}

	w := worker.New(
		jobstore.NewPostgresStore(pool),
		queue.NewProcessingQueue(queue.NewRedisQueue(rdb, cfg.ProcessQueueKey)),
		bucket,
		invoker,
		logger,
	)

	logger.Info().Str("queue", cfg.ProcessQueueKey).Msg("worker started")
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker stopped")
}
