package middlewares

import (
	"net/http"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves a Redis-backed session token (issued at
// login) into the acting principal. Coexists with JWT auth: whichever
// the client sends wins.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetUserByUsername(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUserRoleInContext(ctx, string(user.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
