package middlewares

import (
	"net/http"

	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/gin-gonic/gin"
)

// RequireAuth rejects anonymous requests. Auth or session middleware
// must have populated the principal beforehand.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUserIdFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStudentManager restricts a route to roles allowed to act on
// allocation records (admin, committee, staff). The role is always
// present on the principal; there is no attribute-existence probing.
func RequireStudentManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := utils.GetUserRoleFromContext(c.Request.Context())
		if !ok || !models.UserRole(role).CanManageStudents() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin or committee access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to admins only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := utils.GetUserRoleFromContext(c.Request.Context())
		if !ok || models.UserRole(role) != models.UserRoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
