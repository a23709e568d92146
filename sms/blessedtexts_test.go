package sms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*BlessedTextsProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewBlessedTextsProvider(Config{
		Provider: ProviderBlessedTexts,
		APIKey:   "test-key",
		SenderID: "BuretiCDF",
		BaseURL:  srv.URL,
	}, testLogger())
	return p, srv
}

func TestBlessedTextsSendSuccess(t *testing.T) {
	var gotPayload map[string]string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendsms" {
			t.Errorf("path = %q, want /sendsms", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotPayload); err != nil {
			t.Fatalf("request body not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"status_code":"1000","status_desc":"Success","message_id":"msg-1"}]`)
	})

	result := p.Send(context.Background(), "254712345678", "hello", Metadata{StudentID: 7, Role: "student"})
	if !result.OK {
		t.Fatalf("Send failed: %s", result.Detail)
	}
	if result.MessageID != "msg-1" {
		t.Errorf("MessageID = %q, want msg-1", result.MessageID)
	}
	if gotPayload["api_key"] != "test-key" {
		t.Errorf("api_key = %q, want test-key", gotPayload["api_key"])
	}
	if gotPayload["sender_id"] != "BuretiCDF" {
		t.Errorf("sender_id = %q, want BuretiCDF", gotPayload["sender_id"])
	}
	if gotPayload["phone"] != "254712345678" {
		t.Errorf("phone = %q, want 254712345678", gotPayload["phone"])
	}
}

func TestBlessedTextsSendGatewayError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status_code":"1004","status_desc":"Low credit units"}`)
	})

	result := p.Send(context.Background(), "254712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded, want failure")
	}
	if result.Detail != "Low credit units" {
		t.Errorf("Detail = %q, want gateway status_desc", result.Detail)
	}
}

func TestBlessedTextsSendHTTPError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	result := p.Send(context.Background(), "254712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded, want failure")
	}
	if !strings.Contains(result.Detail, "HTTP 502") {
		t.Errorf("Detail = %q, want HTTP status in detail", result.Detail)
	}
}

func TestBlessedTextsSendMalformedResponse(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json at all")
	})

	result := p.Send(context.Background(), "254712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded, want failure")
	}
	if !strings.Contains(result.Detail, "unexpected response") {
		t.Errorf("Detail = %q, want unexpected response detail", result.Detail)
	}
}

func TestBlessedTextsSendRejectsNonCanonicalPhone(t *testing.T) {
	called := false
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	result := p.Send(context.Background(), "0712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded, want failure for non-canonical phone")
	}
	if called {
		t.Error("gateway was contacted for a non-canonical phone")
	}
}

func TestBlessedTextsSendWithoutAPIKey(t *testing.T) {
	p := NewBlessedTextsProvider(Config{Provider: ProviderBlessedTexts}, testLogger())
	result := p.Send(context.Background(), "254712345678", "hello", Metadata{})
	if result.OK {
		t.Fatal("Send succeeded without API key")
	}
	if !strings.Contains(result.Detail, "API key") {
		t.Errorf("Detail = %q, want API key message", result.Detail)
	}
}

func TestBlessedTextsSendTruncatesLongMessage(t *testing.T) {
	var sentMessage string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		sentMessage = payload["message"]
		io.WriteString(w, `[{"status_code":"1000","message_id":"msg-2"}]`)
	})

	long := strings.Repeat("a", 200)
	result := p.Send(context.Background(), "254712345678", long, Metadata{})
	if !result.OK {
		t.Fatalf("Send failed: %s", result.Detail)
	}
	if len(sentMessage) != 160 {
		t.Errorf("sent message length = %d, want 160", len(sentMessage))
	}
	if !strings.HasSuffix(sentMessage, "...") {
		t.Errorf("truncated message does not end with ellipsis: %q", sentMessage[150:])
	}
	if sentMessage[:157] != long[:157] {
		t.Error("truncated message does not preserve the leading 157 characters")
	}
}

func TestBlessedTextsBalance(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/credit-balance" {
			t.Errorf("path = %q, want /credit-balance", r.URL.Path)
		}
		io.WriteString(w, `{"status_code":"1000","balance":123.45}`)
	})

	balance, err := p.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.Amount.StringFixed(2) != "123.45" {
		t.Errorf("Amount = %s, want 123.45", balance.Amount)
	}
	if balance.Status != "success" {
		t.Errorf("Status = %q, want success", balance.Status)
	}
}

func TestBlessedTextsBalanceGatewayError(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status_code":"1003","status_desc":"Invalid API key"}`)
	})

	_, err := p.Balance(context.Background())
	if err == nil {
		t.Fatal("Balance succeeded, want error")
	}
	if err.Error() != "Invalid API key" {
		t.Errorf("error = %q, want gateway status_desc", err)
	}
}
