package services

import (
	"context"
	"time"

	"github.com/strathlearn/api/internal/db"
)

// Subscription is the local mirror of a provider subscription.
type Subscription struct {
	ID                string
	UserID            string
	Status            string
	ProductID         string
	Amount            int64
	Currency          string
	Interval          string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// GetUserSubscription returns the user's most recent active subscription, or
// nil when there is none.
func (s *Service) GetUserSubscription(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := s.getDB().GetActiveSubscriptionByUserID(ctx, userID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	var periodEnd *time.Time
	if sub.CurrentPeriodEnd.Valid {
		periodEnd = &sub.CurrentPeriodEnd.Time
	}

	return &Subscription{
		ID:                sub.ID,
		UserID:            sub.UserID,
		Status:            sub.Status,
		ProductID:         sub.ProductID,
		Amount:            sub.Amount,
		Currency:          sub.Currency,
		Interval:          sub.Interval,
		CurrentPeriodEnd:  periodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CreatedAt:         sub.CreatedAt.Time,
		UpdatedAt:         sub.UpdatedAt.Time,
	}, nil
}
