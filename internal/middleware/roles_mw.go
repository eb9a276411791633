package middleware

import (
	"net/http"
	"slices"

	"minimart/internal/model"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware creates a middleware to check for specific user roles
func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		if !exists {
			abort(c, http.StatusForbidden, codeForbidden, "Role not found in token, ensure JWT middleware runs first")
			return
		}

		userRole, ok := roleVal.(string)
		if !ok {
			abort(c, http.StatusForbidden, codeForbidden, "Invalid role type in token")
			return
		}

		if !slices.Contains(allowedRoles, userRole) {
			abort(c, http.StatusForbidden, codeForbidden, "You do not have permission to access this resource")
			return
		}

		c.Next()
	}
}

// AdminMiddleware checks if the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleAdmin)
}

// ResidentMiddleware checks if the user is a resident
func ResidentMiddleware() gin.HandlerFunc {
	return RoleMiddleware(model.RoleResident)
}
