package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"phCompose/internal/browser"
	"phCompose/internal/config"
	"phCompose/internal/database"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/metrics"
	"phCompose/internal/storage"
	"phCompose/internal/store"
	"phCompose/internal/tasks"
	"phCompose/internal/template"
	"phCompose/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	registry := template.Default(errcode.SlogReporter(logger))
	launcher := browser.NewLauncher(browser.Options{Bin: cfg.Browser.Bin, Timeout: cfg.Browser.Timeout}, logger)
	defer launcher.Close()

	var exporter export.Exporter = export.NewNative(registry)
	if cfg.Layout.Surface == config.SurfaceChromium {
		exporter = export.NewChromium(registry, launcher)
	}

	exportHandler := worker.NewExportHandler(store.NewRepository(db), exporter, storageClient, redisClient, logger)
	previewHandler := worker.NewTemplatePreviewHandler(db, registry, launcher, storageClient, logger)

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeDocumentExport, exportHandler)
	mux.Handle(tasks.TypeTemplatePreview, previewHandler)

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.String("surface", cfg.Layout.Surface),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
