package sms

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func TestLogProviderSend(t *testing.T) {
	p := NewLogProvider(testLogger())

	result := p.Send(context.Background(), "254712345678", "hello", Metadata{StudentID: 1, Role: "student"})
	if !result.OK {
		t.Fatalf("Send failed: %s", result.Detail)
	}
	if result.Detail != "Running in LOG mode" {
		t.Errorf("Detail = %q, want log-mode marker", result.Detail)
	}
}

func TestLogProviderRejectsNonCanonicalPhone(t *testing.T) {
	p := NewLogProvider(testLogger())

	result := p.Send(context.Background(), "0712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded for non-canonical phone")
	}
}

func TestLogProviderBalance(t *testing.T) {
	p := NewLogProvider(testLogger())

	balance, err := p.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Amount.Equal(decimal.NewFromInt(49)) {
		t.Errorf("Amount = %s, want 49", balance.Amount)
	}
	if balance.Status != "log_mode" {
		t.Errorf("Status = %q, want log_mode", balance.Status)
	}
}

func TestNewProviderSelection(t *testing.T) {
	logger := testLogger()

	if _, ok := NewProvider(Config{Provider: ProviderBlessedTexts, APIKey: "k"}, logger).(*BlessedTextsProvider); !ok {
		t.Error("blessed_texts config did not select BlessedTextsProvider")
	}
	if _, ok := NewProvider(Config{Provider: ProviderLog}, logger).(*LogProvider); !ok {
		t.Error("log config did not select LogProvider")
	}
	if _, ok := NewProvider(Config{Provider: "something_else"}, logger).(*LogProvider); !ok {
		t.Error("unknown provider did not fall back to LogProvider")
	}
}

func TestTruncateMessage(t *testing.T) {
	short := "short message"
	if got, cut := truncateMessage(short); cut || got != short {
		t.Errorf("truncateMessage(%q) = (%q, %v), want unchanged", short, got, cut)
	}

	exact := strings.Repeat("x", 160)
	if got, cut := truncateMessage(exact); cut || got != exact {
		t.Errorf("160-char message was modified: len=%d cut=%v", len(got), cut)
	}

	long := strings.Repeat("x", 161)
	got, cut := truncateMessage(long)
	if !cut {
		t.Fatal("161-char message was not truncated")
	}
	if len(got) != 160 {
		t.Errorf("truncated length = %d, want 160", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated message missing ellipsis")
	}
}

func TestTruncateMessageCountsCharactersNotBytes(t *testing.T) {
	// 100 two-byte characters: 200 bytes but well under the 160-character
	// segment limit, so it must pass through untouched.
	accented := strings.Repeat("é", 100)
	if got, cut := truncateMessage(accented); cut || got != accented {
		t.Errorf("100-char multi-byte message modified: runes=%d cut=%v",
			utf8.RuneCountInString(got), cut)
	}

	overLimit := strings.Repeat("é", 161)
	got, cut := truncateMessage(overLimit)
	if !cut {
		t.Fatal("161-char multi-byte message was not truncated")
	}
	if n := utf8.RuneCountInString(got); n != 160 {
		t.Errorf("truncated rune count = %d, want 160", n)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation produced invalid UTF-8")
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated message missing ellipsis")
	}
	if []rune(got)[156] != 'é' {
		t.Error("truncation cut a rune in half before the ellipsis")
	}
}
