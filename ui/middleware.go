package ui

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "labreport/internal/errors"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger())
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("[Server] panic serving %s: %v", c.Request.URL.Path, recovered)
		respondError(c, apperrors.InternalError("internal server error"))
	}))
	s.router.Use(s.metrics.middleware())
	s.router.Use(corsMiddleware(s.container.Config.Server.CORSOrigins))
}

// corsMiddleware allows the configured browser origins to call the API
func corsMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (allowed[origin] || allowed["*"]) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
