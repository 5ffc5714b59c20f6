package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash pgtype.Text
	CustomerID   pgtype.Text
	LastLoginAt  pgtype.Timestamptz
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// Subscription mirrors the provider's subscription. ID is the
// provider-assigned subscription id and is the natural key.
type Subscription struct {
	ID                string
	UserID            string
	Status            string
	ProductID         string
	Amount            int64
	Currency          string
	Interval          string
	CurrentPeriodEnd  pgtype.Timestamptz
	CancelAtPeriodEnd bool
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

type Submission struct {
	ID          string
	UserID      string
	ChallengeID string
	Code        string
	Passed      bool
	CreatedAt   pgtype.Timestamptz
}

// WebhookDeadLetter holds webhook events that could not be reconciled to a
// local user, kept for manual inspection.
type WebhookDeadLetter struct {
	ID        string
	EventType string
	Payload   []byte
	Reason    string
	CreatedAt pgtype.Timestamptz
}
