package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/buretifund/bursary_backend/config"
	"github.com/buretifund/bursary_backend/models"
	"github.com/buretifund/bursary_backend/sms"
	"github.com/gin-gonic/gin"
)

const balanceCacheKey = "sms:balance"

type sendSMSRequest struct {
	Message string `json:"message"`
}

type bulkSendSMSRequest struct {
	StudentIds []int  `json:"student_ids"`
	Message    string `json:"message"`
}

func sendStudentSMSHandler(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req sendSMSRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	student, err := models.GetStudent(ctx, id)
	if err != nil {
		respondError(c, "notifications.go", "sendStudentSMSHandler", err)
		return
	}

	outcome, err := notifier.NotifyOne(ctx, student, req.Message)
	if err != nil {
		respondError(c, "notifications.go", "sendStudentSMSHandler", err)
		return
	}

	body := gin.H{
		"success":       outcome.SuccessCount > 0,
		"student_id":    outcome.StudentID,
		"total_phones":  outcome.TotalPhones,
		"success_count": outcome.SuccessCount,
		"failure_count": outcome.FailureCount,
		"results":       outcome.Results,
		"sms_status":    outcome.SmsStatus,
	}

	switch {
	case outcome.SuccessCount == 0:
		// Every phone failed; the gateway cause per phone is in results.
		body["error"] = "failed to send SMS to any phone number"
		c.JSON(http.StatusBadGateway, body)
	case outcome.FailureCount > 0:
		c.JSON(http.StatusMultiStatus, body)
	default:
		c.JSON(http.StatusOK, body)
	}
}

func bulkSendSMSHandler(c *gin.Context) {
	var req bulkSendSMSRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "bulkSendSMS")
	defer span.End()

	outcome, err := notifier.NotifyMany(ctx, req.StudentIds, req.Message)
	if err != nil {
		respondError(c, "notifications.go", "bulkSendSMSHandler", err)
		return
	}

	// Bulk is always a 200-class aggregate: per-record failures are data,
	// not request failures.
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"total_students":     outcome.TotalRequested,
		"success_count":      outcome.SuccessCount,
		"failure_count":      outcome.FailureCount,
		"skipped_ineligible": outcome.SkippedIneligible,
		"skipped_ids":        outcome.SkippedIds,
		"results":            outcome.Results,
	})
}

func smsBalanceHandler(c *gin.Context) {
	if cached, exists, err := config.GetRedisValue(balanceCacheKey); err == nil && exists {
		var balance sms.Balance
		if json.Unmarshal([]byte(cached), &balance) == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance, "cached": true})
			return
		}
	}

	balance, err := notifier.Balance(c.Request.Context())
	if err != nil {
		config.LogError(config.GetLogger(), "notifications.go", "smsBalanceHandler", "Balance", nil, err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}

	if raw, err := json.Marshal(balance); err == nil {
		_ = config.SetRedisValue(balanceCacheKey, string(raw), time.Minute)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "balance": balance})
}
