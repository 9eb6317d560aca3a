// Package http provides the HTTP server and route wiring.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/allisson/gatekeeper/internal/audit/http"
	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	"github.com/allisson/gatekeeper/internal/config"
	"github.com/allisson/gatekeeper/internal/metrics"
	policyHTTP "github.com/allisson/gatekeeper/internal/policy/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is assembled separately via
// SetupRouter so tests can wire a minimal one.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterDeps bundles everything SetupRouter needs to register routes.
type RouterDeps struct {
	Config           *config.Config
	Authenticator    authUseCase.Authenticator
	Authorizer       authUseCase.Authorizer
	MeterProvider    metric.MeterProvider // nil disables HTTP metrics
	RuleHandler      *policyHTTP.RuleHandler
	PolicyHandler    *policyHTTP.PolicyHandler
	APIKeyHandler    *authHTTP.APIKeyHandler
	AuthorizeHandler *authHTTP.AuthorizeHandler
	AuditHandler     *auditHTTP.AuditHandler
}

// SetupRouter assembles the Gin router: ambient middleware, health endpoints,
// and the authenticated /v1 API grouped by required access level.
//
// Every /v1 route passes through identity resolution, and each group carries
// the enforcement middleware for its access level: read for queries, write for
// policy/rule mutations and checkpoints, admin for API key management and
// audit entry deletion.
func (s *Server) SetupRouter(deps RouterDeps) {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MeterProvider, cfg.MetricsNamespace))
	}

	// Health and readiness endpoints stay unauthenticated
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	v1.Use(authHTTP.IdentityMiddleware(deps.Authenticator, cfg.AuthRequired, s.logger))

	if cfg.RateLimitEnabled {
		v1.Use(authHTTP.RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	// The decision endpoint authorizes inside the handler: wrapping it in the
	// enforcement middleware would record two audit entries per call.
	v1.POST("/authorize", deps.AuthorizeHandler.AuthorizeEndpoint)

	read := v1.Group("")
	read.Use(authHTTP.EnforcementMiddleware(deps.Authorizer, authDomain.AccessRead, s.logger))
	{
		read.GET("/rules", deps.RuleHandler.ListHandler)
		read.GET("/rules/:id", deps.RuleHandler.GetHandler)
		read.GET("/policies", deps.PolicyHandler.ListHandler)
		read.GET("/policies/:id", deps.PolicyHandler.GetHandler)
		read.GET("/audit-logs", deps.AuditHandler.ListHandler)
		read.GET("/audit-logs/entity/:entity_type/:entity_id", deps.AuditHandler.EntityHistoryHandler)
		read.GET("/audit-logs/actor/:actor_id", deps.AuditHandler.ActorHistoryHandler)
		read.GET("/audit-chains/:chain_id/verify", deps.AuditHandler.VerifyChainHandler)
		read.GET("/audit-chains/:chain_id/latest-hash", deps.AuditHandler.LatestHashHandler)
		read.GET("/audit-chains/:chain_id/checkpoints", deps.AuditHandler.ListCheckpointsHandler)
	}

	write := v1.Group("")
	write.Use(authHTTP.EnforcementMiddleware(deps.Authorizer, authDomain.AccessWrite, s.logger))
	{
		write.POST("/rules", deps.RuleHandler.CreateHandler)
		write.PATCH("/rules/:id", deps.RuleHandler.UpdateHandler)
		write.DELETE("/rules/:id", deps.RuleHandler.DeleteHandler)
		write.POST("/policies", deps.PolicyHandler.CreateHandler)
		write.PATCH("/policies/:id", deps.PolicyHandler.UpdateHandler)
		write.DELETE("/policies/:id", deps.PolicyHandler.DeleteHandler)
		write.POST("/audit-checkpoints", deps.AuditHandler.CreateCheckpointHandler)
	}

	admin := v1.Group("")
	admin.Use(authHTTP.EnforcementMiddleware(deps.Authorizer, authDomain.AccessAdmin, s.logger))
	{
		if cfg.APIKeyAdminEnabled {
			admin.POST("/api-keys", deps.APIKeyHandler.CreateHandler)
			admin.GET("/api-keys", deps.APIKeyHandler.ListHandler)
			admin.GET("/api-keys/:id", deps.APIKeyHandler.GetHandler)
			admin.POST("/api-keys/:id/revoke", deps.APIKeyHandler.RevokeHandler)
		}
		admin.DELETE("/audit-logs/:id", deps.AuditHandler.DeleteEntryHandler)
	}

	s.router = router
}

// Start starts the HTTP server. SetupRouter must have been called first.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not initialized: call SetupRouter first")
	}

	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic: the database
// must be reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("readiness database ping failed", slog.Any("error", err))
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}
