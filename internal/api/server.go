package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"

	"example.com/restaurant/services/ordering/config"
	"example.com/restaurant/services/ordering/internal/api/handlers"
	"example.com/restaurant/services/ordering/internal/api/middleware"
	"example.com/restaurant/services/ordering/internal/metrics"
	"example.com/restaurant/services/ordering/internal/postcode"
	"example.com/restaurant/services/ordering/internal/repositories"
	"example.com/restaurant/services/ordering/internal/services"
	"example.com/restaurant/services/ordering/internal/session"
	"example.com/restaurant/services/ordering/internal/storage"
	"example.com/restaurant/services/ordering/internal/tracing"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Accounts  *services.AccountService
	Catalog   *services.CatalogService
	Checkout  *services.CheckoutService
	Summaries *services.SummaryService
	Orders    *repositories.OrderRepository
	Sessions  *session.Store
	Images    *storage.ImageStore
	Postcodes *postcode.Checker
	Metrics   *metrics.Metrics
	Tracer    tracing.Tracer
}

// Server represents the HTTP server
type Server struct {
	config     config.Config
	router     *gin.Engine
	httpServer *http.Server
	deps       Deps
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, deps Deps) *Server {
	server := &Server{
		config: cfg,
		deps:   deps,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     router,
		ReadTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	// Recovery middleware
	router.Use(gin.Recovery())

	if app := s.deps.Tracer.App(); app != nil {
		router.Use(nrgin.Middleware(app))
	}
	router.Use(middleware.Sessions(s.deps.Sessions))
	router.Use(middleware.Logger(logrus.StandardLogger()))

	router.LoadHTMLGlob(s.config.TemplateGlob)
	router.Static("/static/images", s.config.Storage.ImagePath)

	// Register handlers
	authHandler := handlers.NewAuthHandler(s.deps.Accounts)
	authHandler.RegisterRoutes(router)

	webHandler := handlers.NewWebHandler(s.deps.Catalog, s.deps.Checkout, s.deps.Orders, s.deps.Postcodes)
	webHandler.RegisterRoutes(router)

	adminHandler := handlers.NewAdminHandler(s.deps.Catalog, s.deps.Summaries, s.deps.Images)
	adminHandler.RegisterRoutes(router)

	menuHandler := handlers.NewMenuHandler(s.deps.Catalog, s.deps.Tracer)
	menuHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.deps.Metrics, s.deps.Tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
