package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getSubscriptionByID = `
SELECT id, user_id, status, product_id, amount, currency, interval, current_period_end, cancel_at_period_end, created_at, updated_at
FROM subscriptions
WHERE id = $1
`

func (q *Queries) GetSubscriptionByID(ctx context.Context, id string) (Subscription, error) {
	row := q.db.QueryRow(ctx, getSubscriptionByID, id)
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.ProductID, &s.Amount, &s.Currency, &s.Interval, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const getActiveSubscriptionByUserID = `
SELECT id, user_id, status, product_id, amount, currency, interval, current_period_end, cancel_at_period_end, created_at, updated_at
FROM subscriptions
WHERE user_id = $1 AND status = 'active'
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetActiveSubscriptionByUserID(ctx context.Context, userID string) (Subscription, error) {
	row := q.db.QueryRow(ctx, getActiveSubscriptionByUserID, userID)
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.ProductID, &s.Amount, &s.Currency, &s.Interval, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const createSubscription = `
INSERT INTO subscriptions (id, user_id, status, product_id, amount, currency, interval, current_period_end, cancel_at_period_end)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, user_id, status, product_id, amount, currency, interval, current_period_end, cancel_at_period_end, created_at, updated_at
`

type CreateSubscriptionParams struct {
	ID                string
	UserID            string
	Status            string
	ProductID         string
	Amount            int64
	Currency          string
	Interval          string
	CurrentPeriodEnd  pgtype.Timestamptz
	CancelAtPeriodEnd bool
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (Subscription, error) {
	row := q.db.QueryRow(ctx, createSubscription,
		arg.ID, arg.UserID, arg.Status, arg.ProductID, arg.Amount,
		arg.Currency, arg.Interval, arg.CurrentPeriodEnd, arg.CancelAtPeriodEnd,
	)
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.ProductID, &s.Amount, &s.Currency, &s.Interval, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const updateSubscriptionRenewal = `
UPDATE subscriptions
SET status = $2, current_period_end = $3, cancel_at_period_end = $4, updated_at = NOW()
WHERE id = $1
RETURNING id, user_id, status, product_id, amount, currency, interval, current_period_end, cancel_at_period_end, created_at, updated_at
`

type UpdateSubscriptionRenewalParams struct {
	ID                string
	Status            string
	CurrentPeriodEnd  pgtype.Timestamptz
	CancelAtPeriodEnd bool
}

// UpdateSubscriptionRenewal touches only the fields a provider redelivery is
// allowed to change.
func (q *Queries) UpdateSubscriptionRenewal(ctx context.Context, arg UpdateSubscriptionRenewalParams) (Subscription, error) {
	row := q.db.QueryRow(ctx, updateSubscriptionRenewal, arg.ID, arg.Status, arg.CurrentPeriodEnd, arg.CancelAtPeriodEnd)
	var s Subscription
	err := row.Scan(&s.ID, &s.UserID, &s.Status, &s.ProductID, &s.Amount, &s.Currency, &s.Interval, &s.CurrentPeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
