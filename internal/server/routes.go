package server

import (
	"github.com/nulzo/usage-metrics-api/internal/server/middleware"
	v1 "github.com/nulzo/usage-metrics-api/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.ErrorHandler(s.logger))

	// Health Check (Public)
	healthHandler := v1.NewHealthHandler()
	s.router.GET("/health", healthHandler.Health)

	limiter := middleware.NewRateLimiter(s.config.RateLimit.RequestsPerSecond, s.config.RateLimit.Burst, s.logger)

	// API V1 Group
	api := s.router.Group("/v1")
	api.Use(limiter.Middleware())
	api.Use(middleware.Auth(s.config.Auth.APIKeys)) // Require API Key for everything below
	api.Use(middleware.Identity())
	{
		metricsHandler := v1.NewMetricsHandler(s.service)
		api.GET("/metrics", metricsHandler.GetMetrics)
		api.GET("/metrics/comparison", metricsHandler.GetComparison)
		api.GET("/metrics/descriptors", metricsHandler.ListDescriptors)

		usageHandler := v1.NewUsageHandler(s.service)
		api.GET("/usage/rollup", usageHandler.GetRollup)

		catalogHandler := v1.NewCatalogHandler(s.catalogs, s.reload, s.logger)
		api.GET("/catalog/providers", catalogHandler.ListProviders)
		api.GET("/catalog/models", catalogHandler.ListModels)
		api.GET("/catalog/models/:id", catalogHandler.GetModel)
		api.POST("/catalog/reload", catalogHandler.Reload)
	}
}
