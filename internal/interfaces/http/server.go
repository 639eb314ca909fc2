// internal/interfaces/http/server.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/infrastructure/database/postgres"
	"github.com/your-org/marketplace-api/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-api/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-api/internal/interfaces/http/routes"
	"github.com/your-org/marketplace-api/internal/pkg/validation"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	log        *logrus.Logger
	gin        *gin.Engine
	httpServer *http.Server
	deps       Dependencies
	services   *Services
	startedAt  time.Time
}

// NewServer wires services, middleware and routes
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	services, err := NewServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:    cfg,
		log:       deps.Log,
		gin:       gin.New(),
		deps:      deps,
		services:  services,
		startedAt: time.Now(),
	}
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			return nil, fmt.Errorf("invalid trusted proxies: %w", err)
		}
	}

	validation.Register()
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Services returns the wired domain services
func (s *Server) Services() *Services {
	return s.services
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.config.Server.Port,
		Handler:           s.gin,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
	}

	s.log.WithFields(logrus.Fields{
		"port":        s.config.Server.Port,
		"environment": s.config.App.Environment,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains connections, then waits for in-flight order notifications
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.services.Orders.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("timed out waiting for order notifications")
	}

	s.log.Info("HTTP server stopped gracefully")
	return nil
}

// setupMiddleware installs the global chain. Order matters: recovery wraps
// everything and the error handler sits closest to the handlers.
func (s *Server) setupMiddleware() {
	s.gin.Use(middleware.Recovery(s.log))
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.log))
	s.gin.Use(middleware.Metrics(s.services.Metrics))
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	s.gin.Use(middleware.RateLimit(s.config, s.deps.Redis, s.log))
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	s.gin.Use(middleware.ErrorHandler(s.log))

	s.gin.HandleMethodNotAllowed = true
	s.gin.NoRoute(middleware.NotFound())
	s.gin.NoMethod(middleware.MethodNotAllowed())
}

func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)

	if s.config.Metrics.Enabled && s.deps.Registry != nil {
		s.gin.GET(s.config.Metrics.Path, gin.WrapH(promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{})))
	}

	svc := s.services
	sessions := middleware.NewAuthenticator(s.config, svc.JWT, svc.Users)
	api := s.gin.Group("/api")
	routes.SetupRoutes(api, &routes.Handlers{
		Auth:      handlers.NewAuthHandler(svc.Users, s.config),
		Products:  handlers.NewProductHandler(svc.Products),
		Category:  handlers.NewCategoryHandler(svc.Categories),
		Cart:      handlers.NewCartHandler(svc.Carts),
		Orders:    handlers.NewOrderHandler(svc.Orders),
		Invoice:   handlers.NewInvoiceHandler(svc.Orders, svc.Invoices),
		Inventory: handlers.NewInventoryHandler(svc.Inventory),
		Analytics: handlers.NewAnalyticsHandler(svc.Analytics),
		Users:     handlers.NewUserAdminHandler(svc.UserAdmin),
		Sessions:  sessions,
	})
}

// healthCheck reports liveness
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
		"uptime":      time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// readinessCheck requires the database. Redis is reported but optional since
// the rate limiter and tree cache degrade without it.
func (s *Server) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "disabled"}
	status := http.StatusOK

	if err := postgres.Health(ctx, s.deps.DB); err != nil {
		s.log.WithError(err).Warn("readiness: database ping failed")
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if s.deps.Redis != nil {
		checks["redis"] = "ok"
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			s.log.WithError(err).Warn("readiness: redis ping failed")
			checks["redis"] = "unavailable"
		}
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
