// Package http provides the gateway HTTP server, its router and middlewares.
package http

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/txgateway/internal/auth/http"
	"github.com/allisson/txgateway/internal/config"
	"github.com/allisson/txgateway/internal/device"
	"github.com/allisson/txgateway/internal/metrics"
	sessionHTTP "github.com/allisson/txgateway/internal/session/http"
	sessionUseCase "github.com/allisson/txgateway/internal/session/usecase"
	transactionDomain "github.com/allisson/txgateway/internal/transaction/domain"
	transactionHTTP "github.com/allisson/txgateway/internal/transaction/http"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the gateway HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
	cache  Pinger
	db     *sql.DB
}

// NewServer creates a new HTTP server. db is nil when audit events are not
// persisted, in which case readiness only depends on the cache.
func NewServer(
	cache Pinger,
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		logger: logger,
		cache:  cache,
		db:     db,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// SetupRouter configures the Gin router with all routes and middlewares.
// ctx bounds the lifetime of the rate limiter cleanup goroutines.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	transactionHandler *transactionHTTP.TransactionHandler,
	authHandler *authHTTP.AuthHandler,
	sessions sessionUseCase.SessionUseCase,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	router.Use(SecurityHeadersMiddleware())

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsEnabled && metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.Use(device.Middleware())

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	app := router.Group("/" + cfg.AppName)

	// Upload routes share the authenticated group but size their own bodies.
	authenticated := app.Group("/main")
	authenticated.Use(sessionHTTP.AuthenticationMiddleware(sessions, s.logger))
	if cfg.RateLimitEnabled {
		authenticated.Use(IPRateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	for _, profile := range transactionDomain.UploadProfiles {
		authenticated.POST("/"+profile.Route,
			BodyLimitMiddleware(profile.MaxBodyBytes()),
			transactionHandler.UploadHandler(profile),
		)
	}

	secured := authenticated.Group("")
	secured.Use(BodyLimitMiddleware(maxBodyBytes))
	{
		secured.POST("/transactions", transactionHandler.TransactHandler)
		secured.POST("/print-receipt", transactionHandler.PrintReceiptHandler)
		secured.POST("/session-auth", authHandler.VerifySessionHandler)
		secured.POST("/validate-otp", authHandler.ValidateOTPHandler)
		secured.POST("/first-login", authHandler.FirstLoginHandler)
		secured.POST("/generate-otp", authHandler.GenerateOTPHandler)
		secured.POST("/audit-trail", authHandler.AuditTrailHandler)
	}

	auth := app.Group("/auth")
	auth.Use(BodyLimitMiddleware(maxBodyBytes))
	if cfg.RateLimitAuthEnabled {
		auth.Use(IPRateLimitMiddleware(ctx, cfg.RateLimitAuthRequestsPerSec, cfg.RateLimitAuthBurst, s.logger))
	}
	{
		auth.POST("/login", authHandler.LoginHandler)
		auth.GET("/fetch-public-key", authHandler.FetchPublicKeyHandler)
		auth.POST("/audit-trail", authHandler.AuditTrailHandler)
	}

	s.router = router
	s.server.Handler = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server. SetupRouter must be called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router not initialized")
	}

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler pings the cache and, when configured, the database.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{}
	ready := true

	if s.cache == nil || s.cache.Ping(ctx) != nil {
		components["cache"] = "error"
		ready = false
	} else {
		components["cache"] = "ok"
	}

	switch {
	case s.db == nil:
		components["database"] = "disabled"
	case s.db.PingContext(ctx) != nil:
		components["database"] = "error"
		ready = false
	default:
		components["database"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
