package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"laptopkita/internal/server/config"
)

// Auth enforces the shared bearer token when one is configured.
func Auth(cfg config.Config) gin.HandlerFunc {
	token := strings.TrimSpace(cfg.AuthToken)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		h := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") || strings.TrimSpace(h[7:]) != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
