package main

import (
	"net/http"
	"time"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionLifetime = 24 * time.Hour

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username or email is required"})
		return
	}

	ctx := c.Request.Context()
	if !loginLimiter.Allow(ctx, "login:"+c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	user, err := models.AuthenticateUser(ctx, identifier, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error()})
		return
	}

	jwtToken, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		respondError(c, "users.go", "loginHandler", err)
		return
	}

	sessionToken := uuid.NewString()
	if err := config.SetRedisValue("Token:"+sessionToken, user.Username, sessionLifetime); err != nil {
		respondError(c, "users.go", "loginHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"token":         jwtToken,
		"session_token": sessionToken,
		"user":          user,
	})
}

func logoutHandler(c *gin.Context) {
	ctx := c.Request.Context()
	if token, ok := utils.GetTokenFromContext(ctx); ok && token != "" {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			respondError(c, "users.go", "logoutHandler", err)
			return
		}
	}
	if username, ok := utils.GetUsernameFromContext(ctx); ok {
		config.GetLogger().WithField("username", username).Info("session ended")
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func registerHandler(c *gin.Context) {
	var input models.NewUser
	if !bindJSON(c, &input) {
		return
	}
	user, err := models.RegisterUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, "users.go", "registerHandler", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func meHandler(c *gin.Context) {
	ctx := c.Request.Context()
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	user, err := models.GetUser(ctx, userId)
	if err != nil {
		respondError(c, "users.go", "meHandler", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func listUsersHandler(c *gin.Context) {
	users, err := models.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, "users.go", "listUsersHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": users, "count": len(users)})
}
