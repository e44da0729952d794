package router

import (
	"net/http"
	"strings"

	"conversation-webhook/backend/conversation/api"
	"conversation-webhook/backend/pkg/config"
	"conversation-webhook/backend/pkg/di"
	"conversation-webhook/backend/pkg/errors"
	"conversation-webhook/backend/pkg/logger"
	"conversation-webhook/backend/pkg/middleware"
	"conversation-webhook/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine      *gin.Engine
	Container   *di.Container
	Logger      *logger.Logger
	Config      *config.Config
	RateLimiter *middleware.RateLimiter

	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler

	validator *validator.OpenAPIValidator
}

// New creates a new router with the given container
func New(container *di.Container, cfg *config.Config) *Router {
	logger.SetGlobal(container.Logger)

	if cfg == nil {
		cfg = config.Get()
	}

	// Configure Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.RequestIDMiddleware())

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	opts := middleware.DefaultRateLimiterOptions()
	opts.Limit = rate.Limit(cfg.Security.RateLimit)
	opts.Burst = cfg.Security.RateLimitBurst
	rateLimiter := middleware.NewRateLimiter(container.Logger, opts)
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		RateLimiter: rateLimiter,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.setupHealthRoutes()

	if r.MetricsHandler != nil {
		r.Engine.GET("/metrics", gin.WrapH(r.MetricsHandler))
	}

	webhookMiddleware := []gin.HandlerFunc{middleware.BodyLimit(r.Config.Security.MaxBodySize)}
	if r.validator != nil {
		webhookMiddleware = append(webhookMiddleware, r.validator.Middleware())
	}

	handler := r.Container.ConversationHandler

	// Root paths are what webhook providers are configured with
	api.RegisterConversationRoutes(r.Engine, handler, webhookMiddleware...)

	v1 := r.Engine.Group("/api/v1")
	api.RegisterConversationRoutes(v1, handler, webhookMiddleware...)
}

// Close releases background resources held by the router
func (r *Router) Close() {
	r.RateLimiter.Stop()
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && allowed[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Origin", logger.RequestIDHeader,
		}, ", "))
		c.Writer.Header().Set("Access-Control-Expose-Headers", logger.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
