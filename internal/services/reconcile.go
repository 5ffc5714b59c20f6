package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/strathlearn/api/internal/appctx"
	"github.com/strathlearn/api/internal/apperrs"
	"github.com/strathlearn/api/internal/db"
	"github.com/strathlearn/api/internal/metrics"
)

// Customer identifies the paying customer in a provider event.
type Customer struct {
	ID         string // provider-assigned customer id
	Email      string
	ExternalID string // our user id, when checkout carried it
}

// SubscriptionEvent is the subscription block of an order.paid event.
type SubscriptionEvent struct {
	ID                string
	Status            string
	RecurringInterval string
	CurrentPeriodEnd  time.Time // zero when the payload omitted it
	CancelAtPeriodEnd bool
}

// OrderPaidEvent is the normalized, transport-independent shape of a
// provider "order.paid" webhook.
type OrderPaidEvent struct {
	Customer     Customer
	Subscription *SubscriptionEvent
	ProductID    string
	Amount       int64
	Currency     string
}

// ReconcileOutcome reports what a reconciliation did.
type ReconcileOutcome struct {
	UserID         string
	SubscriptionID string
	Created        bool
	Updated        bool
	// Unresolved means no local user matched the event's customer. Not an
	// error: provider redelivery cannot fix an identity mismatch, so the
	// event is acknowledged and optionally dead-lettered.
	Unresolved bool
}

// ReconcileStore is the transactional data-access capability the
// reconciliation needs. *db.Queries satisfies it.
type ReconcileStore interface {
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id string) (db.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (db.User, error)
	UpdateUserCustomerID(ctx context.Context, arg db.UpdateUserCustomerIDParams) (db.User, error)
	GetSubscriptionByID(ctx context.Context, id string) (db.Subscription, error)
	CreateSubscription(ctx context.Context, arg db.CreateSubscriptionParams) (db.Subscription, error)
	UpdateSubscriptionRenewal(ctx context.Context, arg db.UpdateSubscriptionRenewalParams) (db.Subscription, error)
}

// Single source of truth for fields an order.paid payload may omit.
const (
	defaultSubscriptionStatus = SubscriptionStatusActive
	defaultInterval           = IntervalMonth
	defaultPeriod             = 30 * 24 * time.Hour
)

// reconcileTimeout bounds the whole transaction so a stuck connection
// surfaces as a 500 and the provider redelivers.
const reconcileTimeout = 10 * time.Second

// ReconcileOrderPaid reconciles local user/subscription state against one
// order.paid event. It is idempotent: redelivery of the same event updates
// only mutable fields and never inserts a duplicate, because the upsert is
// keyed strictly on the provider subscription id. The caller is responsible
// for running it inside a transaction.
func ReconcileOrderPaid(ctx context.Context, store ReconcileStore, now time.Time, ev OrderPaidEvent) (ReconcileOutcome, error) {
	var outcome ReconcileOutcome

	if ev.Customer.Email == "" && ev.Customer.ID == "" && ev.Customer.ExternalID == "" {
		return outcome, apperrs.Client(apperrs.CodeInvalidInput, "event has no customer identity")
	}

	user, found, err := resolveUser(ctx, store, ev.Customer)
	if err != nil {
		return outcome, err
	}
	if !found {
		appctx.Logger(ctx).Warn("webhook customer did not match any user",
			"customer_id", ev.Customer.ID,
			"customer_email", ev.Customer.Email,
			"external_id", ev.Customer.ExternalID,
		)
		outcome.Unresolved = true
		return outcome, nil
	}
	outcome.UserID = user.ID

	// Keep the customer-id backlink current: the provider may re-issue
	// customer ids across checkouts for the same email.
	if ev.Customer.ID != "" && (!user.CustomerID.Valid || user.CustomerID.String != ev.Customer.ID) {
		if _, err := store.UpdateUserCustomerID(ctx, db.UpdateUserCustomerIDParams{
			ID:         user.ID,
			CustomerID: ev.Customer.ID,
		}); err != nil {
			return outcome, fmt.Errorf("failed to update user customer id: %w", err)
		}
	}

	if ev.Subscription == nil {
		return outcome, nil
	}
	sub := ev.Subscription
	outcome.SubscriptionID = sub.ID

	status := sub.Status
	if status == "" {
		status = defaultSubscriptionStatus
	}
	periodEnd := sub.CurrentPeriodEnd
	if periodEnd.IsZero() {
		periodEnd = now.Add(defaultPeriod)
	}

	_, err = store.GetSubscriptionByID(ctx, sub.ID)
	switch {
	case db.IsNotFoundError(err):
		interval := sub.RecurringInterval
		if interval == "" {
			interval = defaultInterval
		}
		if _, err := store.CreateSubscription(ctx, db.CreateSubscriptionParams{
			ID:                sub.ID,
			UserID:            user.ID,
			Status:            status,
			ProductID:         ev.ProductID,
			Amount:            ev.Amount,
			Currency:          ev.Currency,
			Interval:          interval,
			CurrentPeriodEnd:  pgtype.Timestamptz{Time: periodEnd, Valid: true},
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}); err != nil {
			return outcome, fmt.Errorf("failed to create subscription %s: %w", sub.ID, err)
		}
		outcome.Created = true
	case err != nil:
		return outcome, fmt.Errorf("failed to look up subscription %s: %w", sub.ID, err)
	default:
		if _, err := store.UpdateSubscriptionRenewal(ctx, db.UpdateSubscriptionRenewalParams{
			ID:                sub.ID,
			Status:            status,
			CurrentPeriodEnd:  pgtype.Timestamptz{Time: periodEnd, Valid: true},
			CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		}); err != nil {
			return outcome, fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
		}
		outcome.Updated = true
	}

	return outcome, nil
}

// resolveUser looks up the target user by email, then by our user id carried
// as the provider's external id, then by the provider customer id.
func resolveUser(ctx context.Context, store ReconcileStore, c Customer) (db.User, bool, error) {
	if c.Email != "" {
		user, err := store.GetUserByEmail(ctx, c.Email)
		if err == nil {
			return user, true, nil
		}
		if !db.IsNotFoundError(err) {
			return db.User{}, false, fmt.Errorf("failed to look up user by email: %w", err)
		}
	}

	if c.ExternalID != "" {
		user, err := store.GetUserByID(ctx, c.ExternalID)
		if err == nil {
			return user, true, nil
		}
		if !db.IsNotFoundError(err) {
			return db.User{}, false, fmt.Errorf("failed to look up user by external id: %w", err)
		}
	}

	if c.ID != "" {
		user, err := store.GetUserByCustomerID(ctx, c.ID)
		if err == nil {
			return user, true, nil
		}
		if !db.IsNotFoundError(err) {
			return db.User{}, false, fmt.Errorf("failed to look up user by customer id: %w", err)
		}
	}

	return db.User{}, false, nil
}

// ProcessOrderPaid runs the reconciliation in a single bounded transaction.
// Any failure rolls back; unresolved identities commit nothing and are
// optionally recorded to the dead-letter table outside the transaction.
func (s *Service) ProcessOrderPaid(ctx context.Context, ev OrderPaidEvent) (ReconcileOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	var outcome ReconcileOutcome
	err := s.RunInTransaction(ctx, func(tx *db.Queries) error {
		var err error
		outcome, err = ReconcileOrderPaid(ctx, tx, time.Now().UTC(), ev)
		return err
	})
	if err != nil {
		s.metrics.RecordReconciliation(metrics.ReconcileError)
		return outcome, err
	}

	switch {
	case outcome.Created:
		s.metrics.RecordReconciliation(metrics.ReconcileCreated)
	case outcome.Updated:
		s.metrics.RecordReconciliation(metrics.ReconcileUpdated)
	case outcome.Unresolved:
		s.metrics.RecordReconciliation(metrics.ReconcileUnresolved)
	}

	if outcome.Unresolved && s.config.Polar.DeadLetter {
		s.recordDeadLetter(ctx, "order.paid", ev, "no matching user")
	}

	return outcome, nil
}

// recordDeadLetter is best effort: a dead-letter write failure must not turn
// an acknowledged event into a provider retry loop.
func (s *Service) recordDeadLetter(ctx context.Context, eventType string, ev OrderPaidEvent, reason string) {
	payload, err := json.Marshal(ev)
	if err != nil {
		appctx.Logger(ctx).Error("failed to marshal dead-letter payload", "error", err)
		return
	}

	if _, err := s.getDB().CreateWebhookDeadLetter(ctx, db.CreateWebhookDeadLetterParams{
		ID:        uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Reason:    reason,
	}); err != nil {
		appctx.Logger(ctx).Error("failed to record webhook dead letter", "error", err)
	}
}
