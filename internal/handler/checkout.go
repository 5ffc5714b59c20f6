package handler

import (
	"log/slog"
	"net/http"

	polargo "github.com/polarsource/polar-go"
	"github.com/polarsource/polar-go/models/components"
)

// CreateCheckout creates a Polar checkout session for the authenticated
// user and redirects the browser to it. The user id rides along as the
// provider's external customer id so webhook reconciliation can fall back
// to it when the email does not match.
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := MustGetUser(r.Context())
	ctx := r.Context()

	checkoutCreate := components.CheckoutCreate{
		Products:           []string{h.config.Polar.ProductID},
		ExternalCustomerID: polargo.Pointer(user.UserID),
		CustomerEmail:      polargo.Pointer(user.Email),
		SuccessURL:         polargo.Pointer(h.config.Server.BaseURL("/success")),
	}

	h.logger.Info("Creating Polar checkout session",
		slog.String("user_id", user.UserID),
		slog.String("email", user.Email))

	resp, err := h.polarClient.Checkouts.Create(ctx, checkoutCreate)
	if err != nil {
		h.logger.Error("Failed to create Polar checkout", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create checkout session"})
		return
	}
	if resp.Checkout == nil {
		h.logger.Error("Checkout response is nil")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create checkout session"})
		return
	}

	h.logger.Info("Polar checkout created",
		slog.String("checkout_id", resp.Checkout.ID),
		slog.String("user_id", user.UserID))

	http.Redirect(w, r, resp.Checkout.URL, http.StatusSeeOther)
}

// GetSubscription reports the locally reconciled subscription for the
// authenticated user. This is the webhook-fed mirror, not a live provider
// lookup, so it can lag a just-completed checkout by a few seconds.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user := MustGetUser(r.Context())

	sub, err := h.svc.GetUserSubscription(r.Context(), user.UserID)
	if err != nil {
		h.logger.Error("failed to fetch subscription", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to fetch subscription"})
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"active":               sub.IsActive(),
		"status":               sub.Status,
		"interval":             sub.Interval,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
	})
}
