package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/learning-insights-api/internal/handler"
	"github.com/noah-isme/learning-insights-api/internal/middleware"
	"github.com/noah-isme/learning-insights-api/internal/repository"
	"github.com/noah-isme/learning-insights-api/internal/service"
	"github.com/noah-isme/learning-insights-api/pkg/cache"
	"github.com/noah-isme/learning-insights-api/pkg/config"
	"github.com/noah-isme/learning-insights-api/pkg/database"
	"github.com/noah-isme/learning-insights-api/pkg/export"
	"github.com/noah-isme/learning-insights-api/pkg/logger"
)

// @title Learning Insights API
// @version 1.0.0
// @description Score predictions and study content recommendations for learners
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "insights", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Insights.CacheTTL, logr, cfg.Insights.CacheEnabled && redisClient != nil)

	insightRepo := repository.NewInsightRepository(db)
	validate := service.NewValidator()

	predictionSvc := service.NewPredictionService(insightRepo, cacheSvc, metrics, validate, logr, service.PredictionServiceConfig{
		MinSamplesForModel: cfg.Insights.MinSamplesForModel,
		ModelTimeout:       cfg.Insights.ModelTimeout,
		MaxScoreHistory:    cfg.Insights.MaxScoreHistory,
	})
	recommendationSvc := service.NewRecommendationService(insightRepo, cacheSvc, metrics, validate, logr, service.RecommendationServiceConfig{
		MaxScoreHistory:  cfg.Insights.MaxScoreHistory,
		MaxPeerRecords:   cfg.Insights.MaxPeerRecords,
		DefaultMinCommon: cfg.Insights.DefaultMinCommon,
	})

	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		reportSvc := service.NewReportService(predictionSvc, recommendationSvc, export.NewCSVExporter(), export.NewPDFExporter(cfg.Reports.PDFFontPath), validate, logr)
		reportHandler = handler.NewReportHandler(reportSvc)
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go limiter.RunCleanup(ctx, 10*time.Minute)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := newRouter(cfg, logr, routeDeps{
		insights: handler.NewInsightHandler(predictionSvc, recommendationSvc),
		reports:  reportHandler,
		metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": insightRepo,
			"cache":    cacheRepo,
		}),
		metricsSvc: metrics,
		limiter:    limiter,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
