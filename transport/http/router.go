package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/agentgate/internal/logging"
	"github.com/layer-3/agentgate/internal/metrics"
	"github.com/layer-3/agentgate/service"
)

// RouterConfig holds transport level settings
type RouterConfig struct {
	Cookie      CookieConfig
	RateLimiter *RateLimiter // Applied to /auth; nil disables limiting
}

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, agentService *service.AgentService, cfg RouterConfig, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(log), metrics.Middleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Create handlers
	authHandlers := NewAuthHandlers(authService, cfg.Cookie)
	agentHandlers := NewAgentHandlers(agentService)
	guard := Guard(authService, cfg.Cookie.Name)

	// Auth routes
	auth := router.Group("/auth")
	if cfg.RateLimiter != nil {
		auth.Use(cfg.RateLimiter.Handler())
	}
	{
		auth.POST("/nonce", authHandlers.Nonce)
		auth.POST("/verify", authHandlers.Verify)
		auth.POST("/logout", authHandlers.Logout)
		auth.GET("/session", guard, authHandlers.Session)
	}

	agent := router.Group("/agent")
	agent.GET("/actions", agentHandlers.Actions)

	// Protected agent routes
	protected := agent.Group("")
	protected.Use(guard)
	{
		protected.POST("/keys", agentHandlers.ImportKey)
		protected.POST("/action", agentHandlers.Execute)
		protected.GET("/transactions/:hash", agentHandlers.TransactionStatus)
	}

	return router
}
