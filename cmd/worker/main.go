// Package main runs the queue worker: notification fan-out and report exports.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scribeworks/backend/config"
	"github.com/scribeworks/backend/internal/hierarchy"
	"github.com/scribeworks/backend/internal/notifications"
	"github.com/scribeworks/backend/internal/projects"
	"github.com/scribeworks/backend/internal/realtime"
	"github.com/scribeworks/backend/internal/reports"
	"github.com/scribeworks/backend/internal/worker"
	"github.com/scribeworks/backend/pkg/database"
	"github.com/scribeworks/backend/pkg/queue"
	"github.com/scribeworks/backend/pkg/redis"
	"github.com/scribeworks/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Fan-out jobs run without S3; only report exports need it.
	var s3Client *storage.S3
	if cfg.AWS.ReportsBucket != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ReportsBucket:        cfg.AWS.ReportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled, report export jobs will be dropped", zap.Error(err))
			s3Client = nil
		}
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	pubsub := realtime.NewRedisPubSub(rdb.Client, logger)

	hierRepo := hierarchy.NewRepository(pool)
	noteRepo := notifications.NewRepository(pool)
	projectRepo := projects.NewRepository(pool)
	reportRepo := reports.NewRepository(pool)

	var exporter *reports.Exporter
	if s3Client != nil {
		var uploader reports.Uploader = s3Client
		exporter = reports.NewExporter(reportRepo, projectRepo, uploader, logger)
	}

	processor := worker.NewProcessor(hierRepo, noteRepo, exporter, jobQueue, pubsub, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
