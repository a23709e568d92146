package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/middlewares"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/sms"
	"github.com/buretifund/bursary_backend/utils"
	"github.com/buretifund/bursary_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("bursary-backend")

// notifier is built once at startup with the provider selected by env;
// handlers never branch on provider names.
var notifier *workflow.Notifier

// RateLimiter throttles a keyed action inside a fixed window, backed by
// Redis so limits hold across instances. Degrades to allow-all when
// Redis is absent.
type RateLimiter struct {
	limit  int64
	window time.Duration
}

func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	count, err := config.GetRedisCounter(ctx, key)
	if err != nil || count == 0 {
		return true
	}
	if count == 1 {
		if err := config.ExpireRedisKey(ctx, key, rl.window); err != nil {
			return true
		}
	}
	return count <= rl.limit
}

var loginLimiter = &RateLimiter{limit: 10, window: time.Minute}

func requestLogMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationId := c.Request.Header.Get("X-Request-ID")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		c.Header("X-Request-ID", correlationId)

		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), correlationId)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"requestId": correlationId,
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
		}).Info("request")
	}
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "token", "X-Request-ID")
	return cfg
}

func setupRouter(logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogMiddleware(logger))
	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.SessionMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", loginHandler)
		auth.POST("/register", registerHandler)
		auth.POST("/logout", middlewares.RequireAuth(), logoutHandler)
		auth.GET("/me", middlewares.RequireAuth(), meHandler)
	}

	users := api.Group("/users", middlewares.RequireAuth(), middlewares.RequireAdmin())
	{
		users.GET("", listUsersHandler)
	}

	students := api.Group("/students", middlewares.RequireAuth(), middlewares.RequireStudentManager())
	{
		students.GET("", listStudentsHandler)
		students.POST("", createStudentHandler)
		students.GET("/statistics", studentStatisticsHandler)
		students.GET("/export", exportStudentsHandler)
		students.GET("/sms_balance", smsBalanceHandler)
		students.POST("/bulk_send_sms", bulkSendSMSHandler)
		students.GET("/:id", getStudentHandler)
		students.PUT("/:id", updateStudentHandler)
		students.DELETE("/:id", middlewares.RequireAdmin(), deleteStudentHandler)
		students.PUT("/:id/approve", approveStudentHandler)
		students.PUT("/:id/reject", rejectStudentHandler)
		students.PUT("/:id/disburse", disburseStudentHandler)
		students.POST("/:id/send_sms", sendStudentSMSHandler)
	}

	return r
}

func main() {
	logger := config.GetLogger()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	smsConfig := config.GetSMSConfig()
	provider := sms.NewProvider(smsConfig, logger)
	notifier = workflow.NewNotifier(provider, logger)
	logger.WithFields(logrus.Fields{"provider": smsConfig.Provider}).Info("SMS provider configured")

	router := setupRouter(logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	// Start listening first; DB and Redis connect with retry behind it.
	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	if err := models.Migrate(config.GetDB()); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	if db := config.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
