package sms

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxMessageLength is the single-segment SMS limit enforced before any
// message reaches the gateway. Longer messages are truncated, never split.
const maxMessageLength = 160

// Config carries gateway settings. It is built from env by the config
// package and injected at construction time, so tests can substitute a
// provider without touching process-wide state.
type Config struct {
	Provider string // "blessed_texts" or "log"
	APIKey   string
	SenderID string
	BaseURL  string // override for tests; empty means the production endpoint
	Timeout  time.Duration
}

// Metadata travels with a single send for logging only.
type Metadata struct {
	StudentID int
	Role      string
}

// SendResult is the interpreted outcome of one gateway invocation.
// Gateway failures are results, not errors: the caller decides what a
// failed send means for the record.
type SendResult struct {
	OK        bool
	Detail    string
	MessageID string
}

// Balance is the account-level SMS credit as reported by the provider.
type Balance struct {
	Amount decimal.Decimal `json:"balance"`
	Status string          `json:"status"`
}

// Provider is the gateway capability surface. Exactly one implementation
// is selected at construction time; call sites never branch on provider
// names.
type Provider interface {
	Send(ctx context.Context, phone string, message string, meta Metadata) SendResult
	Balance(ctx context.Context) (Balance, error)
}

// NewProvider selects the provider implementation for cfg. Anything
// other than "blessed_texts" runs in log mode.
func NewProvider(cfg Config, logger *logrus.Logger) Provider {
	if cfg.Provider == ProviderBlessedTexts {
		return NewBlessedTextsProvider(cfg, logger)
	}
	return NewLogProvider(logger)
}

const (
	ProviderBlessedTexts = "blessed_texts"
	ProviderLog          = "log"
)

// truncateMessage enforces the 160-character segment limit, marking the
// cut with an ellipsis. The limit counts characters, not bytes, so
// multi-byte text is never cut mid-rune. Returns the message and
// whether it was cut.
func truncateMessage(message string) (string, bool) {
	runes := []rune(message)
	if len(runes) <= maxMessageLength {
		return message, false
	}
	return string(runes[:maxMessageLength-3]) + "...", true
}
