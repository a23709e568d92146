package middlewares

import (
	"net/http"
	"strings"

	"github.com/buretifund/bursary_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware parses a Bearer token when present. Requests without
// one pass through; role middleware decides whether anonymous access is
// acceptable for the route.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := utils.SetUserIdInContext(c.Request.Context(), customClaim.ID)
		ctx = utils.SetUserRoleInContext(ctx, customClaim.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
