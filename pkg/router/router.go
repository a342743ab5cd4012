package router

import (
	"net/http"

	"novel-forge/backend/internal/api"
	"novel-forge/backend/internal/ws"
	"novel-forge/backend/pkg/config"
	"novel-forge/backend/pkg/di"
	"novel-forge/backend/pkg/errors"
	"novel-forge/backend/pkg/logger"
	"novel-forge/backend/pkg/middleware"

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
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(container.Logger, middleware.RateLimiterOptions{
		Limit: rate.Limit(cfg.Security.RateLimit),
		Burst: cfg.Security.RateLimitBurst,
	})

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
	healthHandler := r.Container.Health.Handler()
	r.Engine.GET("/health", healthHandler)

	if h := r.Container.Telemetry.MetricsHandler(); h != nil {
		r.Engine.GET("/metrics", gin.WrapH(h))
	}

	if path := r.Config.OpenAPI.SchemaPath; path != "" {
		r.AddOpenAPIValidation(path)
	}

	apiGroup := r.Engine.Group("/api")
	apiGroup.GET("/health", healthHandler)

	limited := apiGroup.Group("")
	limited.Use(r.RateLimiter.Middleware())

	api.NewChatHandler(r.Container.ChatService).RegisterRoutes(limited)
	api.NewNovelHandler(r.Container.NovelService).RegisterRoutes(limited)
	api.NewConversationHandler(r.Container.ConversationService).RegisterRoutes(limited)

	wsHandler := ws.NewHandler(r.Container.ChatService, r.Logger)
	limited.GET("/ai/chat/ws", wsHandler.ServeWS)
}

// corsMiddleware allows the configured origins; "*" allows any.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := false
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "" && allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && (allowAll || origins[origin]):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
