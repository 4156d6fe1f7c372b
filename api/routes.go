package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailvault/mailvault/api/handlers"
	"github.com/mailvault/mailvault/api/middleware"
	"github.com/mailvault/mailvault/internal/repository"
	"github.com/mailvault/mailvault/internal/tracing"
	"github.com/mailvault/mailvault/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(ctx context.Context, r *gin.Engine, s *services.Services, repos *repository.Repositories, apikey string) {
	if s == nil {
		panic("Services cannot be nil")
	}
	if repos == nil {
		panic("Repositories cannot be nil")
	}

	// Add recovery middlewares
	r.Use(gin.Recovery())                                         // Gin's built-in recovery
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer())) // Our custom Jaeger recovery

	// setup handlers
	apiHandlers := handlers.InitHandlers(s)

	// Health check and status endpoints (no custom context needed)
	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", handlers.QuotaStatus(s.QuotaMonitor))

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILVAULT-API-KEY",
		ValidAPIKey: apikey,
	})

	// API group with version
	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.TracingMiddleware()) // Add tracing for all /v1/* endpoints
	{
		// Storage endpoints
		storage := api.Group("/storage")
		{
			storage.GET("/quota", handlers.QuotaStatus(s.QuotaMonitor))
			storage.POST("/quota/check", apiHandlers.Storage.CheckQuota())
			storage.GET("/breakdown", apiHandlers.Storage.GetBreakdown())
			storage.POST("/cleanup/estimate", apiHandlers.Storage.EstimateCleanup())
			storage.POST("/cleanup", apiHandlers.Storage.ExecuteCleanup())
		}
	}
}
