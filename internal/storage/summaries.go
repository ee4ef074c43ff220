package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/gymrest/internal/models"
	"github.com/jackc/pgx/v5"
)

// InsertSessionSummary stores a finished session. A summary for the same
// user and start time is ignored and reported with ID 0.
func (db *DB) InsertSessionSummary(ctx context.Context, s models.SessionSummary) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO session_summaries (user_id, user_name, workout_session_id, status,
		 started_at, ended_at, total_workout_seconds, total_rest_seconds, total_active_seconds,
		 completed_sets, total_sets, rest_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (user_id, started_at) DO NOTHING
		 RETURNING id`,
		s.UserID, s.UserName, s.WorkoutSessionID, string(s.Status),
		s.StartedAt, s.EndedAt, s.TotalWorkoutDuration, s.TotalRestTimeAccumulatedSeconds, s.TotalActiveTime,
		s.CompletedSets, s.TotalSets, s.RestCount,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("inserting session summary: %w", err)
	}
	return id, nil
}

// QuerySessionSummaries returns the user's most recent summaries.
func (db *DB) QuerySessionSummaries(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, user_name, workout_session_id, status, started_at, ended_at,
		 total_workout_seconds, total_rest_seconds, total_active_seconds,
		 completed_sets, total_sets, rest_count
		 FROM session_summaries
		 WHERE user_id = $1
		 ORDER BY ended_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying session summaries: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		var status string
		if err := rows.Scan(&s.ID, &s.UserID, &s.UserName, &s.WorkoutSessionID, &status,
			&s.StartedAt, &s.EndedAt, &s.TotalWorkoutDuration, &s.TotalRestTimeAccumulatedSeconds,
			&s.TotalActiveTime, &s.CompletedSets, &s.TotalSets, &s.RestCount); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		s.Status = models.SessionStatus(status)
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetRestSummary aggregates the user's sessions per week or month.
func (db *DB) GetRestSummary(ctx context.Context, userID string, start, end time.Time, bucket string) ([]RestPeriodSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, started_at)::date AS period,
		        COUNT(*)::int,
		        COALESCE(SUM(total_workout_seconds), 0)::int,
		        COALESCE(SUM(total_rest_seconds), 0)::int,
		        COALESCE(SUM(total_active_seconds), 0)::int,
		        COALESCE(SUM(rest_count), 0)::int
		 FROM session_summaries
		 WHERE started_at >= $2 AND started_at < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying rest summary: %w", err)
	}
	defer rows.Close()

	var result []RestPeriodSummary
	for rows.Next() {
		var periodTime time.Time
		var p RestPeriodSummary
		if err := rows.Scan(&periodTime, &p.Sessions, &p.WorkoutSeconds, &p.RestSeconds, &p.ActiveSeconds, &p.RestCount); err != nil {
			return nil, fmt.Errorf("scanning rest summary: %w", err)
		}
		p.Period = periodTime.Format("2006-01-02")
		p.finish()
		result = append(result, p)
	}
	return result, rows.Err()
}
