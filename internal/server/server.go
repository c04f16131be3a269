package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/internal/catalog"
	"github.com/nulzo/usage-metrics-api/internal/config"
	"github.com/nulzo/usage-metrics-api/internal/insights"
	"github.com/nulzo/usage-metrics-api/internal/server/middleware"
	"github.com/nulzo/usage-metrics-api/internal/server/validator"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	logger   *zap.Logger
	service  insights.Service
	catalogs *catalog.Store
	reload   func() (*catalog.Catalog, error)
}

func New(cfg *config.Config, logger *zap.Logger, service insights.Service, catalogs *catalog.Store, reload func() (*catalog.Catalog, error)) *Server {

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing("usage-metrics-api"))
	}

	s := &Server{
		router:   engine,
		config:   cfg,
		logger:   logger,
		service:  service,
		catalogs: catalogs,
		reload:   reload,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
