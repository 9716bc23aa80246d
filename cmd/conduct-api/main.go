package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/thpt-conduct-api/api/swagger"
	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/handler"
	"github.com/noah-isme/thpt-conduct-api/internal/repository"
	"github.com/noah-isme/thpt-conduct-api/internal/service"
	"github.com/noah-isme/thpt-conduct-api/pkg/cache"
	"github.com/noah-isme/thpt-conduct-api/pkg/config"
	"github.com/noah-isme/thpt-conduct-api/pkg/database"
	"github.com/noah-isme/thpt-conduct-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/thpt-conduct-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/thpt-conduct-api/pkg/middleware/requestid"
	"github.com/noah-isme/thpt-conduct-api/pkg/storage"
)

// @title THPT Conduct API
// @version 1.0.0
// @description Violation recording, deduplication and point aggregation service
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API keeps serving without the summary cache.
		logr.Sugar().Warnw("redis unavailable, summary cache disabled", "error", err)
		redisClient = nil
	}

	evidence, err := storage.NewLocalEvidenceStore("")
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare evidence store", "error", err)
	}

	violationRepo := repository.NewViolationRepository(db)
	logRepo := repository.NewViolationLogRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cat := catalog.Default()
	validate := validator.New()
	metrics := service.NewMetricsService()
	window := service.NewSubmissionWindow()
	guard := service.NewDuplicateGuard(violationRepo, cat)

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	settingsService := service.NewConfigurationService(configRepo, cfg.Submission, logr)
	violationService := service.NewViolationService(violationRepo, logRepo, guard, cat, evidence, cacheRepo, validate, logr)
	bulkService := service.NewBulkViolationService(violationRepo, guard, cat, cacheRepo, metrics, logr)
	absenceService := service.NewAbsenceService(violationRepo, guard, window, settingsService, cacheRepo, metrics, logr)
	reportService := service.NewReportService(violationRepo, cat, cacheRepo, cfg.Aggregation.CacheTTL, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Violations:    handler.NewViolationHandler(violationService),
		Bulk:          handler.NewBulkViolationHandler(bulkService),
		Absences:      handler.NewAbsenceHandler(absenceService),
		Window:        handler.NewWindowHandler(window, settingsService),
		Reports:       handler.NewReportHandler(reportService),
		Catalog:       handler.NewCatalogHandler(cat),
		Configuration: handler.NewConfigurationHandler(settingsService),
	}, authService, metrics)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
