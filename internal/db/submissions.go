package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createSubmission = `
INSERT INTO submissions (id, user_id, challenge_id, code, passed)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, challenge_id, code, passed, created_at
`

type CreateSubmissionParams struct {
	ID          string
	UserID      string
	ChallengeID string
	Code        string
	Passed      bool
}

func (q *Queries) CreateSubmission(ctx context.Context, arg CreateSubmissionParams) (Submission, error) {
	row := q.db.QueryRow(ctx, createSubmission, arg.ID, arg.UserID, arg.ChallengeID, arg.Code, arg.Passed)
	var s Submission
	err := row.Scan(&s.ID, &s.UserID, &s.ChallengeID, &s.Code, &s.Passed, &s.CreatedAt)
	return s, err
}

const listSubmissionDays = `
SELECT DATE(created_at) AS day, challenge_id, COUNT(*) AS count
FROM submissions
WHERE user_id = $1 AND created_at BETWEEN $2 AND $3
GROUP BY DATE(created_at), challenge_id
ORDER BY day ASC
`

type ListSubmissionDaysParams struct {
	UserID    string
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

type SubmissionDayRow struct {
	Day         pgtype.Date
	ChallengeID string
	Count       int64
}

func (q *Queries) ListSubmissionDays(ctx context.Context, arg ListSubmissionDaysParams) ([]SubmissionDayRow, error) {
	rows, err := q.db.Query(ctx, listSubmissionDays, arg.UserID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SubmissionDayRow
	for rows.Next() {
		var r SubmissionDayRow
		if err := rows.Scan(&r.Day, &r.ChallengeID, &r.Count); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
