package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rddigitech/dashboard-api/internal/api/handlers"
	"github.com/rddigitech/dashboard-api/internal/api/middleware"
	"github.com/rddigitech/dashboard-api/internal/authz"
	"github.com/rddigitech/dashboard-api/internal/config"
	"github.com/rddigitech/dashboard-api/internal/metrics"
	"github.com/rddigitech/dashboard-api/pkg/jwks"
)

type Server struct {
	Config   *config.Config
	Router   *gin.Engine
	Gate     *authz.Gate
	Verifier jwks.Verifier
	Reporter handlers.Reporter
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

func NewServer(cfg *config.Config, gate *authz.Gate, verifier jwks.Verifier, reporter handlers.Reporter, collector *metrics.Collector, logger *zap.Logger) *Server {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	server := &Server{
		Config:   cfg,
		Router:   router,
		Gate:     gate,
		Verifier: verifier,
		Reporter: reporter,
		Metrics:  collector,
		Logger:   logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandler(s.Reporter, s.Logger)
	limiter := middleware.NewTenantLimiter(s.Config.Server.RateLimit.PerMinute, s.Config.Server.RateLimit.Burst)

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})

	api := s.Router.Group("/api")

	// Public
	api.GET("/health", h.Health)

	// Tenant dashboards (protected)
	dashboard := api.Group("/dashboard/:tenant")
	dashboard.Use(middleware.AuthRequired(s.Verifier, s.Logger))
	dashboard.Use(middleware.Tenant(s.Gate, authz.EmailClaims(s.Config.Auth.EmailClaim), s.Metrics, s.Logger))
	dashboard.Use(middleware.RateLimit(limiter, s.Logger))
	{
		dashboard.GET("/ga4Results", h.GetResults)
	}
}
