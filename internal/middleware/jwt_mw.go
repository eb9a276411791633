package middleware

import (
	"net/http"
	"strings"

	"minimart/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthEmailKey = "authEmail"
	AuthRoleKey  = "authRole"
)

// Error codes written by the middleware. They match the codes the handlers
// use for the same conditions.
const (
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeInternal     = "INTERNAL"
)

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Authorization header required")
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, codeUnauthorized, "Invalid or expired token")
			return
		}

		// Set user information in context
		c.Set(AuthEmailKey, claims.Email)
		c.Set(AuthRoleKey, claims.Role)

		c.Next()
	}
}

// AuthEmail returns the authenticated email set by JWTAuthMiddleware.
func AuthEmail(c *gin.Context) string {
	return c.GetString(AuthEmailKey)
}

// AuthRole returns the authenticated role set by JWTAuthMiddleware.
func AuthRole(c *gin.Context) string {
	return c.GetString(AuthRoleKey)
}
