package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/calder-ai/relay/pkg/api"
)

// Auth checks for a valid Bearer token in the Authorization header against
// the configured static keys. An empty key list disables authentication,
// which is the expected setup for local development.
func Auth(staticKeys []string) gin.HandlerFunc {
	keys := make(map[string]bool, len(staticKeys))
	for _, k := range staticKeys {
		keys[k] = true
	}

	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Missing Authorization header"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format"))
			return
		}

		if !keys[parts[1]] {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				api.NewError(http.StatusUnauthorized, "Unauthorized", "Invalid API key"))
			return
		}

		c.Next()
	}
}
