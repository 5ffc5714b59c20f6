package db

import (
	"context"
)

const createWebhookDeadLetter = `
INSERT INTO webhook_dead_letters (id, event_type, payload, reason)
VALUES ($1, $2, $3, $4)
RETURNING id, event_type, payload, reason, created_at
`

type CreateWebhookDeadLetterParams struct {
	ID        string
	EventType string
	Payload   []byte
	Reason    string
}

func (q *Queries) CreateWebhookDeadLetter(ctx context.Context, arg CreateWebhookDeadLetterParams) (WebhookDeadLetter, error) {
	row := q.db.QueryRow(ctx, createWebhookDeadLetter, arg.ID, arg.EventType, arg.Payload, arg.Reason)
	var d WebhookDeadLetter
	err := row.Scan(&d.ID, &d.EventType, &d.Payload, &d.Reason, &d.CreatedAt)
	return d, err
}
