package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"phCompose/internal/api"
	"phCompose/internal/auth"
	"phCompose/internal/browser"
	"phCompose/internal/config"
	"phCompose/internal/database"
	"phCompose/internal/errcode"
	"phCompose/internal/export"
	"phCompose/internal/imaging"
	"phCompose/internal/measure"
	"phCompose/internal/pagination"
	"phCompose/internal/paper"
	"phCompose/internal/storage"
	"phCompose/internal/template"
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
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name),
	)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	authService, err := auth.NewService([]byte(cfg.Auth.PrivateKeyPEM), []byte(cfg.Auth.PublicKeyPEM), cfg.Auth.AccessTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	registry := template.Default(errcode.SlogReporter(logger))

	surfaces := pagination.SurfaceFactory(func(context.Context) (pagination.Surface, error) {
		return measure.NewSurface(paper.WidthPx), nil
	})
	if cfg.Layout.Surface == config.SurfaceChromium {
		launcher := browser.NewLauncher(browser.Options{Bin: cfg.Browser.Bin, Timeout: cfg.Browser.Timeout}, logger)
		defer launcher.Close()
		surfaces = func(ctx context.Context) (pagination.Surface, error) {
			s, err := launcher.NewSurface(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}

	deps := api.Deps{
		DB:         db,
		Redis:      redisClient,
		LoginGuard: redisClient,
		LoginLimits: api.LoginLimits{
			PerHour:       cfg.Auth.LoginRateLimitPerHour,
			LockThreshold: cfg.Auth.LoginLockThreshold,
			LockTTL:       cfg.Auth.LoginLockTTL,
		},
		Queue:    asynqClient,
		Objects:  storageClient,
		Auth:     authService,
		Registry: registry,
		// 同步下载始终走进程内导出，Chromium 导出只在 worker 中运行
		Exporter: export.NewNative(registry),
		Surfaces: surfaces,
		Scanner:  api.NewScanner(cfg.Clamd.Address),
		Normalizer: imaging.Normalizer{
			MaxSide:   cfg.Imaging.MaxSide,
			Quality:   cfg.Imaging.Quality,
			MaxPixels: cfg.Imaging.MaxPixels,
		},
		Layout:         cfg.Layout,
		PresignExpiry:  cfg.MinIO.PresignExpiry,
		InternalSecret: cfg.API.InternalSecret,
		Logger:         logger,
	}

	router := api.NewRouter(deps)
	api.RegisterRoutes(router, deps)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening",
		slog.String("addr", address),
		slog.String("surface", cfg.Layout.Surface),
	)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
