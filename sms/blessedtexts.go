package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	blessedTextsBaseURL = "https://sms.blessedtexts.com/api/sms/v1"

	// The provider reports per-message delivery acceptance with its own
	// status codes; "1000" is the documented success sentinel.
	blessedTextsSuccessCode = "1000"
)

// BlessedTextsProvider sends through the Blessed Texts HTTP API.
// One network request per Send, bounded timeout, no internal retry:
// retry policy belongs to the caller.
type BlessedTextsProvider struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger
}

func NewBlessedTextsProvider(cfg Config, logger *logrus.Logger) *BlessedTextsProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = blessedTextsBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &BlessedTextsProvider{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type blessedTextsResponse struct {
	StatusCode string      `json:"status_code"`
	StatusDesc string      `json:"status_desc"`
	MessageID  string      `json:"message_id"`
	Balance    json.Number `json:"balance"`
}

func (p *BlessedTextsProvider) Send(ctx context.Context, phone string, message string, meta Metadata) SendResult {
	if p.cfg.APIKey == "" {
		return SendResult{OK: false, Detail: "Blessed Texts API key not configured"}
	}

	// The orchestrator normalizes before calling; re-validate anyway and
	// fail fast rather than forwarding a malformed number upstream.
	if !IsCanonical(phone) {
		return SendResult{OK: false, Detail: "invalid phone format: must be 2547XXXXXXXX"}
	}

	message, truncated := truncateMessage(message)
	if truncated {
		p.logger.WithFields(logrus.Fields{
			"module":    "sms",
			"funcName":  "Send",
			"phone":     phone,
			"studentId": meta.StudentID,
		}).Warn("message truncated to 160 characters")
	}

	payload := map[string]string{
		"api_key":   p.cfg.APIKey,
		"sender_id": p.cfg.SenderID,
		"message":   message,
		"phone":     phone,
	}

	body, err := p.post(ctx, "/sendsms", payload)
	if err != nil {
		return SendResult{OK: false, Detail: err.Error()}
	}

	// Successful sends come back as a list with one entry per recipient;
	// some error shapes come back as a bare object.
	var asList []blessedTextsResponse
	if err := json.Unmarshal(body, &asList); err == nil && len(asList) > 0 {
		first := asList[0]
		if first.StatusCode == blessedTextsSuccessCode {
			return SendResult{OK: true, Detail: "sent", MessageID: first.MessageID}
		}
		detail := first.StatusDesc
		if detail == "" {
			detail = "unknown error"
		}
		return SendResult{OK: false, Detail: detail}
	}

	var asObject blessedTextsResponse
	if err := json.Unmarshal(body, &asObject); err == nil && asObject.StatusCode != "" {
		if asObject.StatusCode == blessedTextsSuccessCode {
			return SendResult{OK: true, Detail: "sent", MessageID: asObject.MessageID}
		}
		detail := asObject.StatusDesc
		if detail == "" {
			detail = "unknown error"
		}
		return SendResult{OK: false, Detail: detail}
	}

	return SendResult{OK: false, Detail: fmt.Sprintf("unexpected response: %s", strings.TrimSpace(string(body)))}
}

func (p *BlessedTextsProvider) Balance(ctx context.Context) (Balance, error) {
	if p.cfg.APIKey == "" {
		return Balance{}, errors.New("Blessed Texts API key not configured")
	}

	body, err := p.post(ctx, "/credit-balance", map[string]string{"api_key": p.cfg.APIKey})
	if err != nil {
		return Balance{}, err
	}

	var parsed blessedTextsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Balance{}, fmt.Errorf("invalid JSON response: %s", strings.TrimSpace(string(body)))
	}
	if parsed.StatusCode != blessedTextsSuccessCode {
		desc := parsed.StatusDesc
		if desc == "" {
			desc = "unknown error"
		}
		return Balance{}, errors.New(desc)
	}

	var balance Balance
	if err := json.Unmarshal(body, &balance); err != nil {
		return Balance{}, fmt.Errorf("invalid balance response: %s", strings.TrimSpace(string(body)))
	}
	balance.Status = "success"
	return balance, nil
}

func (p *BlessedTextsProvider) post(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		// Timeouts and connection failures surface here; both are
		// non-fatal to the caller, who records a failed outcome.
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
