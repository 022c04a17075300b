package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/learning-insights-api/api/swagger"
	"github.com/noah-isme/learning-insights-api/internal/handler"
	"github.com/noah-isme/learning-insights-api/internal/middleware"
	"github.com/noah-isme/learning-insights-api/internal/service"
	"github.com/noah-isme/learning-insights-api/pkg/config"
	"github.com/noah-isme/learning-insights-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/learning-insights-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/learning-insights-api/pkg/middleware/requestid"
)

type routeDeps struct {
	insights   *handler.InsightHandler
	reports    *handler.ReportHandler
	metrics    *handler.MetricsHandler
	metricsSvc *service.MetricsService
	limiter    *middleware.RateLimiter
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.WithResponseMeta())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/analytics/system", deps.metrics.SystemMetrics)

	students := api.Group("/students/:id")
	if deps.limiter != nil {
		students.Use(middleware.RateLimit(deps.limiter))
	}
	students.GET("/predictions", deps.insights.Predictions)
	students.GET("/recommendations", deps.insights.Recommendations)
	students.GET("/recommendations/peers", deps.insights.PeerRecommendations)
	if deps.reports != nil {
		students.GET("/insights/report", deps.reports.StudentReport)
	}

	return r
}
