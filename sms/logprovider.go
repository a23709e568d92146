package sms

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// LogProvider is the development gateway: no network calls, every send
// succeeds, balance is a fixed placeholder.
type LogProvider struct {
	logger *logrus.Logger
}

func NewLogProvider(logger *logrus.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(ctx context.Context, phone string, message string, meta Metadata) SendResult {
	if !IsCanonical(phone) {
		return SendResult{OK: false, Detail: "invalid phone format: must be 2547XXXXXXXX"}
	}

	message, truncated := truncateMessage(message)
	if truncated {
		p.logger.WithFields(logrus.Fields{
			"module":   "sms",
			"funcName": "Send",
			"phone":    phone,
		}).Warn("message truncated to 160 characters")
	}

	p.logger.WithFields(logrus.Fields{
		"module":    "sms",
		"provider":  ProviderLog,
		"phone":     phone,
		"studentId": meta.StudentID,
		"role":      meta.Role,
		"message":   message,
	}).Info("SMS log mode")

	return SendResult{OK: true, Detail: "Running in LOG mode"}
}

func (p *LogProvider) Balance(ctx context.Context) (Balance, error) {
	return Balance{Amount: decimal.NewFromInt(49), Status: "log_mode"}, nil
}
