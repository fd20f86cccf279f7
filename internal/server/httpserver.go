package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bocado/internal/health"
	"bocado/internal/platform/logger"
	"bocado/internal/recommend"
)

// NewRouter wires middleware and every handler group into a gin engine.
func NewRouter(log *logger.Logger, recHandler *recommend.Handler, healthHandler *health.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(accessLog(log))

	api := r.Group("/api")
	recHandler.RegisterRoutes(api)
	healthHandler.RegisterRoutes(r.Group("/"))

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
