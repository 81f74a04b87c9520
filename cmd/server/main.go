// Package main runs the marketplace HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scribeworks/backend/config"
	"github.com/scribeworks/backend/internal/assignments"
	"github.com/scribeworks/backend/internal/auth"
	"github.com/scribeworks/backend/internal/finance"
	"github.com/scribeworks/backend/internal/hierarchy"
	"github.com/scribeworks/backend/internal/middleware"
	"github.com/scribeworks/backend/internal/models"
	"github.com/scribeworks/backend/internal/notifications"
	"github.com/scribeworks/backend/internal/pricing"
	"github.com/scribeworks/backend/internal/projects"
	"github.com/scribeworks/backend/internal/realtime"
	"github.com/scribeworks/backend/internal/refcodes"
	"github.com/scribeworks/backend/internal/reports"
	"github.com/scribeworks/backend/internal/worker"
	"github.com/scribeworks/backend/pkg/database"
	"github.com/scribeworks/backend/pkg/queue"
	"github.com/scribeworks/backend/pkg/redis"
	"github.com/scribeworks/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

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
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Repositories
	authRepo := auth.NewRepository(pool)
	codeRepo := refcodes.NewRepository(pool)
	hierRepo := hierarchy.NewRepository(pool)
	noteRepo := notifications.NewRepository(pool)
	pricingRepo := pricing.NewRepository(pool)
	projectRepo := projects.NewRepository(pool)
	assignRepo := assignments.NewRepository(pool)
	reportRepo := reports.NewRepository(pool)

	if err := auth.EnsureRoot(ctx, authRepo, cfg.Bootstrap, logger); err != nil {
		logger.Fatal("bootstrap root", zap.Error(err))
	}

	// Pricing engine from the system tables, bounds and fee from config.
	rateTable := pricing.DefaultRateTable()
	rateTable.MinWords = cfg.Pricing.MinWordCount
	rateTable.MaxWords = cfg.Pricing.MaxWordCount
	engine := pricing.NewEngine(rateTable, pricing.DefaultUrgencyBands(), decimal.NewFromInt(int64(cfg.Pricing.SystemFeePercent)))

	// Services
	issuer := refcodes.NewIssuer(codeRepo, cfg.Codes.Prefix, cfg.Codes.ExpireDays, logger)
	noteService := notifications.NewService(noteRepo, hierRepo, jobQueue, hub, logger)
	hierService := hierarchy.NewService(hierRepo, hub, noteService, logger)
	assignService := assignments.NewService(assignRepo, hierRepo, hub, noteService, logger)
	projectService := projects.NewService(projectRepo, engine, pricingRepo, hierRepo, hub, noteService, logger)

	// Handlers
	authHandler := auth.NewHandler(authRepo, issuer, jwtService, logger)
	codeHandler := refcodes.NewHandler(issuer, codeRepo, logger)
	hierHandler := hierarchy.NewHandler(hierRepo, hierService)
	noteHandler := notifications.NewHandler(noteRepo, noteService)
	pricingHandler := pricing.NewHandler(engine, pricingRepo)
	projectHandler := projects.NewHandler(projectRepo, projectService)
	assignHandler := assignments.NewHandler(assignRepo, assignService)
	financeHandler := finance.NewHandler(projectRepo)

	var presigner reports.Presigner
	var uploader reports.Uploader
	if s3Client != nil {
		presigner = s3Client
		uploader = s3Client
	}
	reportHandler := reports.NewHandler(reportRepo, jobQueue, presigner)

	var exporter *reports.Exporter
	if s3Client != nil {
		exporter = reports.NewExporter(reportRepo, projectRepo, uploader, logger)
	}
	processor := worker.NewProcessor(hierRepo, noteRepo, exporter, jobQueue, redisPubSub, logger)

	jwtValidate := func(token string) (uuid.UUID, models.Role, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public). Code validation is public so the registration form can
	// check a code before submitting.
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	router.POST("/codes/validate", codeHandler.Validate)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/users", middleware.RequireRole(models.RoleSuperAgent), authHandler.List)
		api.GET("/users/me", authHandler.Me)

		// Hierarchy
		api.GET("/hierarchy/me", hierHandler.Me)
		api.GET("/hierarchy/tree", hierHandler.Tree)
		api.GET("/hierarchy/changes", middleware.RequireRole(models.RoleSuperAgent), hierHandler.Changes)
		api.POST("/hierarchy/move", middleware.RequireRole(models.RoleSuperAgent), hierHandler.Move)

		// Reference codes (role entitlement enforced by the issuer)
		api.POST("/codes", codeHandler.Generate)
		api.GET("/codes", codeHandler.List)
		api.DELETE("/codes/:id", codeHandler.Deactivate)

		// Pricing
		api.POST("/pricing/quote", pricingHandler.QuotePreview)
		api.GET("/pricing/config", middleware.RequireRole(models.RoleAgent), pricingHandler.GetConfig)
		api.PUT("/pricing/config", middleware.RequireRole(models.RoleAgent), pricingHandler.SaveConfig)

		// Projects
		api.POST("/projects", middleware.RequireRole(models.RoleClient), projectHandler.Create)
		api.GET("/projects", projectHandler.List)
		api.GET("/projects/:id", projectHandler.Get)
		api.POST("/projects/:id/requote", middleware.RequireRole(models.RoleAgent, models.RoleSuperAgent), projectHandler.Requote)
		api.POST("/projects/:id/status", projectHandler.Transition)

		// Assignments (capability checked in the service; rejections audited)
		api.POST("/assignments", assignHandler.Assign)
		api.GET("/assignments/project/:id", assignHandler.History)

		// Notifications
		api.POST("/notifications/send", noteHandler.Send)
		api.POST("/notifications/broadcast", middleware.RequireRole(models.RoleSuperAgent, models.RoleAgent, models.RoleSuperWorker), noteHandler.Broadcast)
		api.GET("/notifications", noteHandler.List)
		api.PATCH("/notifications/:id/read", noteHandler.MarkRead)
		api.POST("/notifications/read-all", noteHandler.MarkAllRead)

		// Finance
		api.GET("/finance/summary", financeHandler.Summary)

		// Financial reports
		api.POST("/reports/financial", reportHandler.Create)
		api.GET("/reports", reportHandler.List)
		api.GET("/reports/:id/download", reportHandler.Download)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background processor (broadcast fan-out + report exports)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
