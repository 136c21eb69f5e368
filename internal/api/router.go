package api

import (
	"github.com/gin-gonic/gin"
	"github.com/procurement-tools/contractpilot/internal/agent"
	"github.com/procurement-tools/contractpilot/internal/api/middleware"
	"github.com/procurement-tools/contractpilot/internal/normalizer"
	"github.com/procurement-tools/contractpilot/internal/session"
	"go.uber.org/zap"
)

// RouterConfig holds configuration for the router. The suggestion settings
// are served back to the browser client, which owns the typing debounce.
type RouterConfig struct {
	AllowOrigins         []string
	SuggestionMaxLength  int
	SuggestionDebounceMS int
}

// SetupRouter sets up the Gin router
func SetupRouter(
	manager *agent.Manager,
	store *session.Store,
	n *normalizer.Normalizer,
	logger *zap.Logger,
	cfg RouterConfig,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	handler := NewHandler(manager, store, n, logger, cfg)
	apiGroup := r.Group("/api")
	handler.RegisterRoutes(apiGroup)

	return r
}
