package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the resolved caller identity is stored.
const (
	UserIDKey = "user_id"
	HandleKey = "handle"
)

// Middleware resolves the caller's identity from a Bearer token and injects
// it into the request context. Requests without a valid token are rejected
// before any handler runs.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token is missing"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(HandleKey, claims.Handle)
		c.Next()
	}
}

// CallerID extracts the authenticated user id injected by Middleware.
func CallerID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
