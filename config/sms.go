package config

import (
	"os"
	"strings"
	"time"

	"github.com/buretifund/bursary_backend/sms"
)

// GetSMSConfig reads gateway settings from env.
//
//   - SMS_PROVIDER           "blessed_texts" or "log" (default "log")
//   - BLESSED_TEXTS_API_KEY  provider API key
//   - BLESSED_TEXTS_SENDER_ID  registered sender id (default "BuretiCDF")
//
// The result is injected into the provider constructor in main; nothing
// else reads these variables.
func GetSMSConfig() sms.Config {
	provider := strings.TrimSpace(os.Getenv("SMS_PROVIDER"))
	if provider == "" {
		provider = sms.ProviderLog
	}
	senderID := strings.TrimSpace(os.Getenv("BLESSED_TEXTS_SENDER_ID"))
	if senderID == "" {
		senderID = "BuretiCDF"
	}
	return sms.Config{
		Provider: provider,
		APIKey:   strings.TrimSpace(os.Getenv("BLESSED_TEXTS_API_KEY")),
		SenderID: senderID,
		Timeout:  30 * time.Second,
	}
}
