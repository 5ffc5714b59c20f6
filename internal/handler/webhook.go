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
	"strconv"
	"strings"
	"time"

	"github.com/strathlearn/api/internal/services"
)

// WebhookEvent represents the standard webhook payload structure
type WebhookEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type customerPayload struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	ExternalID string `json:"external_id"`
}

type subscriptionPayload struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	RecurringInterval string   `json:"recurring_interval"`
	CurrentPeriodEnd  flexTime `json:"current_period_end"`
	CancelAtPeriodEnd bool     `json:"cancel_at_period_end"`
}

type orderPaidPayload struct {
	Customer     customerPayload      `json:"customer"`
	Subscription *subscriptionPayload `json:"subscription"`
	ProductID    string               `json:"product_id"`
	Amount       int64                `json:"amount"`
	Currency     string               `json:"currency"`
}

// flexTime accepts the timestamp shapes the provider has been observed to
// send: unix seconds as a number, unix seconds as a string, or RFC 3339.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		t.Time = time.Unix(unix, 0).UTC()
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("unsupported timestamp %s", s)
	}
	if unix, err := strconv.ParseInt(str, 10, 64); err == nil {
		t.Time = time.Unix(unix, 0).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return fmt.Errorf("unsupported timestamp %q", str)
	}
	t.Time = parsed.UTC()
	return nil
}

// PolarWebhook handles incoming webhooks from Polar. Deliveries are
// at-least-once and may arrive out of order or duplicated; anything that
// redelivery cannot fix is acknowledged with 200 so the provider does not
// pile up retries.
func (h *Handler) PolarWebhook(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Error processing webhook",
			"details": "failed to read request body",
		})
		return
	}

	// Verify signature when a webhook secret is configured
	if h.config.Polar.WebhookSecret != "" {
		if err := h.verifyWebhookSignature(r.Header, bodyBytes); err != nil {
			h.logger.Error("Webhook signature verification failed", slog.Any("error", err))
			h.metrics.RecordWebhookEvent("unknown", "rejected")
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}
	}

	var event WebhookEvent
	if err := json.Unmarshal(bodyBytes, &event); err != nil {
		h.logger.Error("Failed to parse webhook event", slog.Any("error", err))
		h.metrics.RecordWebhookEvent("unknown", "malformed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Error processing webhook",
			"details": "invalid JSON payload",
		})
		return
	}

	h.logger.Info("Received Polar webhook", slog.String("event_type", event.Type))

	switch event.Type {
	case "order.paid":
		h.handleOrderPaid(w, r, event)
	default:
		// Unhandled event types are acknowledged without side effects
		h.logger.Info("Unhandled webhook event type", slog.String("event_type", event.Type))
		h.metrics.RecordWebhookEvent(event.Type, "ignored")
		writeJSON(w, http.StatusOK, map[string]string{"message": "Event type not handled"})
	}
}

func (h *Handler) handleOrderPaid(w http.ResponseWriter, r *http.Request, event WebhookEvent) {
	ev, err := normalizeOrderPaid(event.Data)
	if err != nil {
		h.logger.Error("Malformed order.paid payload", slog.Any("error", err))
		h.metrics.RecordWebhookEvent(event.Type, "malformed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Error processing webhook",
			"details": err.Error(),
		})
		return
	}

	outcome, err := h.svc.ProcessOrderPaid(r.Context(), *ev)
	if err != nil {
		h.logger.Error("Failed to reconcile order.paid", slog.Any("error", err))
		h.metrics.RecordWebhookEvent(event.Type, "error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Database error",
			"details": err.Error(),
		})
		return
	}

	h.logger.Info("Reconciled order.paid",
		slog.String("user_id", outcome.UserID),
		slog.String("subscription_id", outcome.SubscriptionID),
		slog.Bool("created", outcome.Created),
		slog.Bool("updated", outcome.Updated),
		slog.Bool("unresolved", outcome.Unresolved),
	)
	h.metrics.RecordWebhookEvent(event.Type, "ok")

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// normalizeOrderPaid validates the untrusted payload and converts it to the
// transport-independent event the reconciler consumes.
func normalizeOrderPaid(data json.RawMessage) (*services.OrderPaidEvent, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("missing event data")
	}

	var payload orderPaidPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid order data: %w", err)
	}

	if payload.Customer.ID == "" && payload.Customer.Email == "" && payload.Customer.ExternalID == "" {
		return nil, fmt.Errorf("order has no customer identity")
	}
	if payload.Subscription != nil && payload.Subscription.ID == "" {
		return nil, fmt.Errorf("order subscription has no id")
	}

	ev := &services.OrderPaidEvent{
		Customer: services.Customer{
			ID:         payload.Customer.ID,
			Email:      payload.Customer.Email,
			ExternalID: payload.Customer.ExternalID,
		},
		ProductID: payload.ProductID,
		Amount:    payload.Amount,
		Currency:  payload.Currency,
	}
	if payload.Subscription != nil {
		ev.Subscription = &services.SubscriptionEvent{
			ID:                payload.Subscription.ID,
			Status:            payload.Subscription.Status,
			RecurringInterval: payload.Subscription.RecurringInterval,
			CurrentPeriodEnd:  payload.Subscription.CurrentPeriodEnd.Time,
			CancelAtPeriodEnd: payload.Subscription.CancelAtPeriodEnd,
		}
	}

	return ev, nil
}

// verifyWebhookSignature verifies the webhook signature using Standard Webhooks spec
// Reference: https://github.com/standard-webhooks/standard-webhooks/blob/main/spec/standard-webhooks.md
func (h *Handler) verifyWebhookSignature(headers http.Header, body []byte) error {
	webhookID := headers.Get("webhook-id")
	webhookTimestamp := headers.Get("webhook-timestamp")
	webhookSignature := headers.Get("webhook-signature")

	if webhookID == "" || webhookTimestamp == "" || webhookSignature == "" {
		return fmt.Errorf("missing required webhook headers")
	}

	// Verify timestamp to prevent replay attacks (5 minute tolerance)
	timestamp, err := strconv.ParseInt(webhookTimestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid webhook timestamp: %w", err)
	}

	now := time.Now().Unix()
	if abs(now-timestamp) > 300 {
		return fmt.Errorf("webhook timestamp too old or too far in future")
	}

	signedContent := fmt.Sprintf("%s.%s.%s", webhookID, webhookTimestamp, string(body))

	// The secret may or may not be base64 encoded
	secret, err := base64.StdEncoding.DecodeString(h.config.Polar.WebhookSecret)
	if err != nil {
		secret = []byte(h.config.Polar.WebhookSecret)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signedContent))
	expectedSignature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The signature header contains multiple versions (v1,hash v2,hash etc.)
	signatures := strings.Split(webhookSignature, " ")
	for _, sig := range signatures {
		parts := strings.SplitN(sig, ",", 2)
		if len(parts) == 2 && parts[0] == "v1" {
			if hmac.Equal([]byte(parts[1]), []byte(expectedSignature)) {
				return nil
			}
		}
	}

	return fmt.Errorf("signature verification failed")
}

// abs returns absolute value of int64
func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
