package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/gymrest/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite keeps session summaries in a local file, for single-node setups
// without PostgreSQL. Times are stored as unix seconds.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the summary database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_summaries (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id               TEXT    NOT NULL,
		user_name             TEXT    NOT NULL DEFAULT '',
		workout_session_id    TEXT    NOT NULL DEFAULT '',
		status                TEXT    NOT NULL,
		started_at            INTEGER NOT NULL, -- unix ms
		ended_at              INTEGER NOT NULL, -- unix ms
		total_workout_seconds INTEGER NOT NULL,
		total_rest_seconds    INTEGER NOT NULL,
		total_active_seconds  INTEGER NOT NULL,
		completed_sets        INTEGER NOT NULL DEFAULT 0,
		total_sets            INTEGER NOT NULL DEFAULT 0,
		rest_count            INTEGER NOT NULL DEFAULT 0,
		UNIQUE (user_id, started_at)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating summary table: %w", err)
	}

	return &SQLite{db: db}, nil
}

// InsertSessionSummary stores a finished session. A duplicate is ignored
// and reported with ID 0.
func (s *SQLite) InsertSessionSummary(ctx context.Context, sum models.SessionSummary) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO session_summaries (user_id, user_name, workout_session_id, status,
		 started_at, ended_at, total_workout_seconds, total_rest_seconds, total_active_seconds,
		 completed_sets, total_sets, rest_count)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		sum.UserID, sum.UserName, sum.WorkoutSessionID, string(sum.Status),
		sum.StartedAt.UnixMilli(), sum.EndedAt.UnixMilli(), sum.TotalWorkoutDuration,
		sum.TotalRestTimeAccumulatedSeconds, sum.TotalActiveTime,
		sum.CompletedSets, sum.TotalSets, sum.RestCount,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session summary: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, nil
	}
	return res.LastInsertId()
}

// QuerySessionSummaries returns the user's most recent summaries.
func (s *SQLite) QuerySessionSummaries(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx,
		`WHERE user_id = ? ORDER BY ended_at DESC LIMIT ?`,
		userID, limit)
}

// GetRestSummary aggregates the user's sessions per week or month.
func (s *SQLite) GetRestSummary(ctx context.Context, userID string, start, end time.Time, bucket string) ([]RestPeriodSummary, error) {
	rows, err := s.query(ctx,
		`WHERE user_id = ? AND started_at >= ? AND started_at < ? ORDER BY started_at`,
		userID, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	return aggregateSummaries(rows, bucket), nil
}

func (s *SQLite) query(ctx context.Context, where string, args ...any) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, user_name, workout_session_id, status, started_at, ended_at,
		 total_workout_seconds, total_rest_seconds, total_active_seconds,
		 completed_sets, total_sets, rest_count
		 FROM session_summaries `+where,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying session summaries: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var status string
		var started, ended int64
		if err := rows.Scan(&sum.ID, &sum.UserID, &sum.UserName, &sum.WorkoutSessionID, &status,
			&started, &ended, &sum.TotalWorkoutDuration, &sum.TotalRestTimeAccumulatedSeconds,
			&sum.TotalActiveTime, &sum.CompletedSets, &sum.TotalSets, &sum.RestCount); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		sum.Status = models.SessionStatus(status)
		sum.StartedAt = time.UnixMilli(started).UTC()
		sum.EndedAt = time.UnixMilli(ended).UTC()
		result = append(result, sum)
	}
	return result, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
