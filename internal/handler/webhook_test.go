package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/strathlearn/api/internal/config"
)

func newWebhookTestHandler(secret string) *Handler {
	return &Handler{
		config: &config.Config{
			Polar: config.PolarConfig{WebhookSecret: secret},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestPolarWebhookInvalidJSON(t *testing.T) {
	h := newWebhookTestHandler("")

	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Error processing webhook") {
		t.Errorf("Expected error body, got %s", w.Body.String())
	}
}

func TestPolarWebhookUnhandledEventType(t *testing.T) {
	h := newWebhookTestHandler("")

	body := `{"type":"subscription.created","data":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Event type not handled") {
		t.Errorf("Expected acknowledgement body, got %s", w.Body.String())
	}
}

func TestPolarWebhookRejectsMissingSignature(t *testing.T) {
	h := newWebhookTestHandler("whsec_test")

	body := `{"type":"subscription.created","data":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status code %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestPolarWebhookRejectsBadSignature(t *testing.T) {
	h := newWebhookTestHandler("whsec_test")

	body := `{"type":"subscription.created","data":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader(body))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", fmt.Sprintf("%d", time.Now().Unix()))
	req.Header.Set("webhook-signature", "v1,bm90LWEtcmVhbC1zaWduYXR1cmU=")
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status code %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestPolarWebhookAcceptsValidSignature(t *testing.T) {
	secret := "whsec_test"
	h := newWebhookTestHandler(secret)

	body := `{"type":"subscription.created","data":{}}`
	id := "msg_1"
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%s.%s.%s", id, timestamp, body)))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader(body))
	req.Header.Set("webhook-id", id)
	req.Header.Set("webhook-timestamp", timestamp)
	req.Header.Set("webhook-signature", "v1,"+signature)
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
}

func TestPolarWebhookRejectsStaleTimestamp(t *testing.T) {
	h := newWebhookTestHandler("whsec_test")

	body := `{"type":"subscription.created","data":{}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/polar", strings.NewReader(body))
	req.Header.Set("webhook-id", "msg_1")
	req.Header.Set("webhook-timestamp", fmt.Sprintf("%d", time.Now().Add(-time.Hour).Unix()))
	req.Header.Set("webhook-signature", "v1,whatever")
	w := httptest.NewRecorder()

	h.PolarWebhook(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status code %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestNormalizeOrderPaid(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		data := json.RawMessage(`{
			"customer": {"id": "cus_1", "email": "a@x.com", "external_id": "u1"},
			"subscription": {
				"id": "sub_1",
				"status": "active",
				"recurring_interval": "month",
				"current_period_end": "2026-04-01T00:00:00Z",
				"cancel_at_period_end": false
			},
			"product_id": "prod_1",
			"amount": 900,
			"currency": "usd"
		}`)

		ev, err := normalizeOrderPaid(data)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ev.Customer.ID != "cus_1" || ev.Customer.Email != "a@x.com" || ev.Customer.ExternalID != "u1" {
			t.Errorf("Customer not normalized: %+v", ev.Customer)
		}
		if ev.Subscription == nil || ev.Subscription.ID != "sub_1" {
			t.Fatalf("Subscription not normalized: %+v", ev.Subscription)
		}
		want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		if !ev.Subscription.CurrentPeriodEnd.Equal(want) {
			t.Errorf("Expected period end %v, got %v", want, ev.Subscription.CurrentPeriodEnd)
		}
		if ev.Amount != 900 || ev.Currency != "usd" || ev.ProductID != "prod_1" {
			t.Errorf("Order fields not normalized: %+v", ev)
		}
	})

	t.Run("missing data", func(t *testing.T) {
		if _, err := normalizeOrderPaid(nil); err == nil {
			t.Error("Expected error for missing data")
		}
	})

	t.Run("no customer identity", func(t *testing.T) {
		data := json.RawMessage(`{"customer": {}, "product_id": "prod_1"}`)
		if _, err := normalizeOrderPaid(data); err == nil {
			t.Error("Expected error for missing customer identity")
		}
	})

	t.Run("subscription without id", func(t *testing.T) {
		data := json.RawMessage(`{"customer": {"id": "cus_1"}, "subscription": {"status": "active"}}`)
		if _, err := normalizeOrderPaid(data); err == nil {
			t.Error("Expected error for subscription without id")
		}
	})

	t.Run("order without subscription", func(t *testing.T) {
		data := json.RawMessage(`{"customer": {"email": "a@x.com"}}`)
		ev, err := normalizeOrderPaid(data)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ev.Subscription != nil {
			t.Errorf("Expected nil subscription, got %+v", ev.Subscription)
		}
	})
}

func TestFlexTimeUnmarshal(t *testing.T) {
	want := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  time.Time
		zero  bool
	}{
		{name: "unix number", input: `1775001600`, want: want},
		{name: "unix string", input: `"1775001600"`, want: want},
		{name: "rfc3339", input: `"2026-04-01T00:00:00Z"`, want: want},
		{name: "null", input: `null`, zero: true},
		{name: "empty string", input: `""`, zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ft flexTime
			if err := json.Unmarshal([]byte(tt.input), &ft); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.zero {
				if !ft.IsZero() {
					t.Errorf("Expected zero time, got %v", ft.Time)
				}
				return
			}
			if !ft.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, ft.Time)
			}
		})
	}

	var ft flexTime
	if err := json.Unmarshal([]byte(`"not a timestamp"`), &ft); err == nil {
		t.Error("Expected error for garbage input")
	}
}
