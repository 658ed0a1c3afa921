package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lgcert/indigene-certificate/internal/auth"
)

// RBACMiddleware checks if the user has one of the allowed roles
func RBACMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := GetAccessContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		for _, role := range allowedRoles {
			if ac.RoleName == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// RequirePermission lets superadmins through and checks the flag for lg admins.
func RequirePermission(perm auth.PermissionFlag) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := GetAccessContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !ac.Has(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":      "forbidden",
				"permission": string(perm),
			})
			return
		}
		c.Next()
	}
}
