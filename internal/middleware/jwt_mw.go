package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthUserKey holds the authenticated username in the gin context
const AuthUserKey = "authUser"

// TokenVerifier resolves a bearer token to a username
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		username, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(AuthUserKey, username)
		c.Next()
	}
}

// AuthUser returns the username set by JWTAuthMiddleware
func AuthUser(c *gin.Context) (string, bool) {
	username := c.GetString(AuthUserKey)
	return username, username != ""
}
