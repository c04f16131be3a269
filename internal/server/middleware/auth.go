package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/usage-metrics-api/pkg/api"
)

// Auth checks for a valid Bearer token in the Authorization header against
// the configured API keys. An empty key list fails closed.
func Auth(apiKeys []string) gin.HandlerFunc {
	keyMap := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		keyMap[k] = true
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.UnauthorizedError("Missing Authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.UnauthorizedError("Invalid Authorization header format"))
			return
		}

		if !keyMap[parts[1]] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.UnauthorizedError("Invalid API Key"))
			return
		}

		c.Next()
	}
}
