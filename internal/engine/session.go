package engine

import (
	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
)

// StartUserWorkoutSession opens a session for userID.
func (r *Registry) StartUserWorkoutSession(c Caller, userID, userName, workoutSessionID string) (models.WorkoutSession, error) {
	if userID == "" {
		userID = c.userID
	}
	if err := c.authorize(userID); err != nil {
		return models.WorkoutSession{}, err
	}

	var out models.WorkoutSession
	err := r.mutate(func(tx *txn) error {
		if _, ok := tx.sessions[userID]; ok {
			return ErrSessionExists
		}
		out = models.WorkoutSession{
			UserID:           userID,
			UserName:         userName,
			WorkoutSessionID: workoutSessionID,
			Status:           models.StatusActive,
			WorkoutStartTime: tx.now,
			LastActivity:     tx.now,
		}
		tx.sessions[userID] = out
		return nil
	})
	if err != nil {
		return models.WorkoutSession{}, err
	}
	r.log.Info("workout session started", "user_id", userID, "workout_session_id", workoutSessionID)
	return out, nil
}

// UpdateUserSession applies a partial update and refreshes LastActivity.
func (r *Registry) UpdateUserSession(c Caller, userID string, patch models.SessionPatch) (models.WorkoutSession, error) {
	if !patch.Valid() {
		return models.WorkoutSession{}, ErrInvalidPatch
	}
	if err := c.authorize(userID); err != nil {
		return models.WorkoutSession{}, err
	}

	var out models.WorkoutSession
	err := r.mutate(func(tx *txn) error {
		sess, ok := tx.sessions[userID]
		if !ok {
			return ErrUnknownSession
		}
		patch.Apply(&sess)
		sess.LastActivity = tx.now
		sess.DeriveStatus()
		tx.sessions[userID] = sess
		out = view(tx.state, sess, tx.now)
		return nil
	})
	return out, err
}

// PauseUserSession moves the session onto the pause axis. It does not
// touch the rest timer.
func (r *Registry) PauseUserSession(c Caller, userID string) (models.WorkoutSession, error) {
	paused := true
	return r.UpdateUserSession(c, userID, models.SessionPatch{Paused: &paused})
}

// ResumeUserSession clears the pause axis.
func (r *Registry) ResumeUserSession(c Caller, userID string) (models.WorkoutSession, error) {
	paused := false
	return r.UpdateUserSession(c, userID, models.SessionPatch{Paused: &paused})
}

// EndUserWorkoutSession stops any running rest timer, folding its elapsed
// time into the totals, removes the session and returns its summary.
func (r *Registry) EndUserWorkoutSession(c Caller, userID string) (models.SessionSummary, error) {
	if err := c.authorize(userID); err != nil {
		return models.SessionSummary{}, err
	}

	var summary models.SessionSummary
	err := r.mutate(func(tx *txn) error {
		sess, ok := tx.sessions[userID]
		if !ok {
			return ErrUnknownSession
		}
		if sess.RestTimerID != "" {
			tx.endTimer(sess.RestTimerID, notify.KindStopped)
			sess = tx.sessions[userID]
		}
		sess.Status = models.StatusCompleted
		summary = models.SessionSummary{
			UserID:               sess.UserID,
			UserName:             sess.UserName,
			WorkoutSessionID:     sess.WorkoutSessionID,
			Status:               sess.Status,
			StartedAt:            sess.WorkoutStartTime,
			EndedAt:              tx.now,
			TotalWorkoutDuration: sess.TotalWorkoutDuration(tx.now),
			TotalActiveTime:      sess.TotalActiveTime(tx.now),
			CompletedSets:        sess.CurrentSet,
			TotalSets:            sess.TotalSets,
			RestCount:            sess.RestCount,

			TotalRestTimeAccumulatedSeconds: sess.TotalRestTimeAccumulatedSeconds,
		}
		delete(tx.sessions, userID)
		return nil
	})
	if err != nil {
		return models.SessionSummary{}, err
	}
	r.log.Info("workout session ended",
		"user_id", userID,
		"duration", notify.FormatTime(summary.TotalWorkoutDuration),
		"rest", notify.FormatTime(summary.TotalRestTimeAccumulatedSeconds),
	)
	return summary, nil
}
