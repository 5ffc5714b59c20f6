package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/strathlearn/api/internal/db"
)

type RecordSubmissionParams struct {
	UserID      string
	ChallengeID string
	Code        string
	Passed      bool
}

func (s *Service) RecordSubmission(ctx context.Context, params RecordSubmissionParams) error {
	_, err := s.getDB().CreateSubmission(ctx, db.CreateSubmissionParams{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		ChallengeID: params.ChallengeID,
		Code:        params.Code,
		Passed:      params.Passed,
	})
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}
	return nil
}

// DailySubmission is one day of submission activity for one challenge.
type DailySubmission struct {
	Date        string `json:"date"`
	Count       int    `json:"count"`
	ChallengeID string `json:"challengeId,omitempty"`
}

// SubmissionActivity is the profile view of a user's submission history.
type SubmissionActivity struct {
	Daily         []DailySubmission `json:"dailySubmissions"`
	ActiveStreak  int               `json:"activeStreak"`
	LongestStreak int               `json:"longestStreak"`
}

// GetSubmissionActivity aggregates a user's submissions per day within the
// range and derives streaks from the distinct active days.
func (s *Service) GetSubmissionActivity(ctx context.Context, userID string, startDate, endDate time.Time) (*SubmissionActivity, error) {
	rows, err := s.getDB().ListSubmissionDays(ctx, db.ListSubmissionDaysParams{
		UserID:    userID,
		StartDate: pgtype.Timestamptz{Time: startDate, Valid: true},
		EndDate:   pgtype.Timestamptz{Time: endDate, Valid: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	daily := make([]DailySubmission, 0, len(rows))
	days := make([]time.Time, 0, len(rows))
	seen := make(map[string]bool)
	for _, row := range rows {
		day := row.Day.Time
		daily = append(daily, DailySubmission{
			Date:        day.Format("2006-01-02"),
			Count:       int(row.Count),
			ChallengeID: row.ChallengeID,
		})
		key := day.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, day)
		}
	}

	active, longest := calculateStreaks(days, time.Now().UTC())

	return &SubmissionActivity{
		Daily:         daily,
		ActiveStreak:  active,
		LongestStreak: longest,
	}, nil
}

// calculateStreaks expects days sorted ascending and deduplicated. The
// active streak counts consecutive days ending today or yesterday.
func calculateStreaks(days []time.Time, now time.Time) (active, longest int) {
	if len(days) == 0 {
		return 0, 0
	}

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	last := days[len(days)-1]
	today := now.Truncate(24 * time.Hour)
	lastDay := last.Truncate(24 * time.Hour)
	if today.Sub(lastDay) <= 24*time.Hour {
		active = run
	}

	return active, longest
}
