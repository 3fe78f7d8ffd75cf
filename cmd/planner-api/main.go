package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/smart-scheduler-api/api/swagger"
	"github.com/noah-isme/smart-scheduler-api/internal/handler"
	"github.com/noah-isme/smart-scheduler-api/internal/models"
	"github.com/noah-isme/smart-scheduler-api/internal/repository"
	"github.com/noah-isme/smart-scheduler-api/internal/router"
	"github.com/noah-isme/smart-scheduler-api/internal/service"
	"github.com/noah-isme/smart-scheduler-api/pkg/cache"
	"github.com/noah-isme/smart-scheduler-api/pkg/config"
	"github.com/noah-isme/smart-scheduler-api/pkg/database"
	"github.com/noah-isme/smart-scheduler-api/pkg/jobs"
	"github.com/noah-isme/smart-scheduler-api/pkg/logger"
	"github.com/noah-isme/smart-scheduler-api/pkg/middleware/ratelimit"
	"github.com/noah-isme/smart-scheduler-api/pkg/storage"
)

// @title SmartScheduler API
// @version 1.0.0
// @description Class schedule generation and filtering for course planning.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case errors.Is(err, cache.ErrDisabled):
		logr.Info("redis disabled, permutation cache off")
	case err != nil:
		logr.Warn("redis unavailable, permutation cache disabled", zap.Error(err))
	default:
		repo := repository.NewCacheRepository(redisClient, "smart-scheduler", logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Planner.CacheTTL, logr, cfg.Planner.CacheEnabled && cacheRepo != nil)

	catalogSvc := service.NewCatalogService(repository.NewCourseRepository(db), cacheSvc, validate, logr)
	plannerSvc := service.NewPlannerService(catalogSvc, cacheSvc, metrics, validate, logr, service.PlannerConfig{
		SessionTTL:      cfg.Planner.SessionTTL,
		CacheTTL:        cfg.Planner.CacheTTL,
		MaxCombinations: cfg.Planner.MaxCombinations,
		MaxCourses:      cfg.Planner.MaxCourses,
	})
	go plannerSvc.RunJanitor(ctx, time.Minute)

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiration,
		Clients: []service.ClientCredential{
			{ID: cfg.Ingest.ClientID, SecretHash: cfg.Ingest.ClientSecretHash, Role: models.RoleIngest},
		},
	})

	var exportHandler *handler.ExportHandler
	if cfg.Exports.Enabled {
		exportSvc, queue, err := buildExports(ctx, cfg, plannerSvc, metrics, validate, logr)
		if err != nil {
			logr.Fatal("export setup failed", zap.Error(err))
		}
		defer queue.Stop()
		exportHandler = handler.NewExportHandler(exportSvc)
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	checks := map[string]handler.ReadinessCheck{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	engine := router.Setup(router.Dependencies{
		Config:         cfg,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		Limiter:        limiter,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		CatalogHandler: handler.NewCatalogHandler(catalogSvc, logr),
		PlannerHandler: handler.NewPlannerHandler(plannerSvc),
		ExportHandler:  exportHandler,
		MetricsHandler: handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func buildExports(ctx context.Context, cfg *config.Config, sessions *service.PlannerService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.ExportService, *jobs.Queue, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	var exportSvc *service.ExportService
	queue := jobs.NewQueue("exports", jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		JobTimeout: cfg.Exports.JobTimeout,
		Logger:     logr,
		OnFailure: func(job jobs.Job, err error) {
			exportSvc.MarkFailed(job, err)
		},
	})
	exportSvc = service.NewExportService(sessions, queue, store, signer, metrics, validate, logr, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	})
	queue.Register(service.JobTypeRenderSchedule, exportSvc.Process)
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := exportSvc.Cleanup(0)
				if err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(removed) > 0 {
					logr.Info("export files removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()

	return exportSvc, queue, nil
}
