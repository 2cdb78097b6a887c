package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"petavatar/internal/blob"
	"petavatar/internal/config"
	"petavatar/internal/http/handlers"
	"petavatar/internal/http/httpapi"
	"petavatar/internal/infra"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
	"petavatar/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: open migration connection failed")
	}
	if err := jobstore.RunMigrations(ctx, migrateDB); err != nil {
		logger.Fatal().Err(err).Msg("api: migrations failed")
	}
	_ = migrateDB.Close()

	pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
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
		logger.Fatal().Err(err).Msg("api: object storage setup failed")
	}

	// An API key from the environment wins; otherwise keys live in the
	// api_credentials table and rotate without a restart.
	var resolver secrets.Resolver = secrets.NewPostgresStore(pool)
	if cfg.APIKey != "" {
		resolver = secrets.Static(cfg.APIKey)
	}

	app := &handlers.App{
		Store:        jobstore.NewPostgresStore(pool),
		Queue:        queue.NewProcessingQueue(queue.NewRedisQueue(rdb, cfg.ProcessQueueKey)),
		Bucket:       bucket,
		Logger:       logger,
		UploadBucket: cfg.S3Bucket,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		Secrets:         resolver,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(infra.HTTPServerOptions{
		Port:         cfg.Port,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
