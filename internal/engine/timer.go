package engine

import (
	"time"

	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
)

// StartRestTimer starts a rest timer in the user's session and returns its
// ID. A timer the user already owns is stopped first, with its real elapsed
// time folded into the session total.
func (r *Registry) StartRestTimer(c Caller, req models.StartTimerRequest) (string, error) {
	if req.TargetDurationSeconds <= 0 || req.TargetDurationSeconds > MaxRestSeconds {
		return "", ErrInvalidDuration
	}
	if req.UserID == "" {
		req.UserID = c.userID
	}
	if err := c.authorize(req.UserID); err != nil {
		return "", err
	}

	id := r.newID()
	err := r.mutate(func(tx *txn) error {
		sess, ok := tx.sessions[req.UserID]
		if !ok {
			return ErrUnknownSession
		}
		if sess.RestTimerID != "" {
			tx.endTimer(sess.RestTimerID, notify.KindStopped)
			sess = tx.sessions[req.UserID]
		}

		tx.timers[id] = models.RestTimer{
			ID:                    id,
			UserID:                req.UserID,
			ExerciseID:            req.ExerciseID,
			ExerciseName:          req.ExerciseName,
			SetNumber:             req.SetNumber,
			StartTime:             tx.now,
			TargetDurationSeconds: req.TargetDurationSeconds,
			IsActive:              true,
			AutoStarted:           req.AutoStart,
		}
		sess.RestTimerID = id
		sess.LastActivity = tx.now
		sess.DeriveStatus()
		tx.sessions[req.UserID] = sess
		return nil
	})
	if err != nil {
		return "", err
	}
	r.log.Debug("rest timer started", "timer_id", id, "user_id", req.UserID, "target", req.TargetDurationSeconds)
	return id, nil
}

// PauseRestTimer freezes the timer's elapsed time. Pausing a paused timer
// is a no-op.
func (r *Registry) PauseRestTimer(c Caller, id string) error {
	return r.updateTimer(c, id, func(t *models.RestTimer, now time.Time) error {
		if t.IsPaused {
			return nil
		}
		t.ElapsedSeconds = t.Elapsed(now)
		t.PausedAt = now
		t.IsPaused = true
		return nil
	})
}

// ResumeRestTimer shifts the start time forward by the paused duration so
// elapsed continues from the value it held at the pause. Resuming a running
// timer is a no-op.
func (r *Registry) ResumeRestTimer(c Caller, id string) error {
	return r.updateTimer(c, id, func(t *models.RestTimer, now time.Time) error {
		if !t.IsPaused {
			return nil
		}
		if paused := now.Sub(t.PausedAt); paused > 0 {
			t.StartTime = t.StartTime.Add(paused)
		}
		t.PausedAt = time.Time{}
		t.IsPaused = false
		t.ElapsedSeconds = t.Elapsed(now)
		return nil
	})
}

// ExtendRestTimer raises the target by seconds without touching progress.
func (r *Registry) ExtendRestTimer(c Caller, id string, seconds int) (models.RestTimer, error) {
	if seconds <= 0 {
		return models.RestTimer{}, ErrInvalidDuration
	}
	var out models.RestTimer
	err := r.updateTimer(c, id, func(t *models.RestTimer, now time.Time) error {
		if err := extendTarget(t, seconds); err != nil {
			return err
		}
		t.ElapsedSeconds = t.Elapsed(now)
		out = *t
		return nil
	})
	return out, err
}

// StopRestTimer ends the timer, adding its real elapsed time to the
// session total, and returns the seconds accounted. Stopping an ended
// timer returns ErrUnknownTimer and changes nothing.
func (r *Registry) StopRestTimer(c Caller, id string) (int, error) {
	return r.endTimer(c, id, notify.KindStopped)
}

// SkipRestTimer is StopRestTimer for a rest abandoned early; only the
// notification differs.
func (r *Registry) SkipRestTimer(c Caller, id string) (int, error) {
	return r.endTimer(c, id, notify.KindSkipped)
}

func (r *Registry) endTimer(c Caller, id string, kind notify.Kind) (int, error) {
	var seconds int
	err := r.mutate(func(tx *txn) error {
		t, ok := tx.timers[id]
		if !ok {
			return ErrUnknownTimer
		}
		if err := c.authorize(t.UserID); err != nil {
			return err
		}
		seconds = tx.endTimer(id, kind)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.log.Debug("rest timer ended", "timer_id", id, "kind", kind, "seconds", seconds)
	return seconds, nil
}

// endUserTimer resolves and ends the user's timer in one mutation.
func (r *Registry) endUserTimer(c Caller, userID string, kind notify.Kind) (int, error) {
	var seconds int
	err := r.mutate(func(tx *txn) error {
		if err := c.authorize(userID); err != nil {
			return err
		}
		sess, ok := tx.sessions[userID]
		if !ok {
			return ErrUnknownSession
		}
		if _, ok := tx.timers[sess.RestTimerID]; !ok {
			return ErrUnknownTimer
		}
		seconds = tx.endTimer(sess.RestTimerID, kind)
		return nil
	})
	return seconds, err
}

// extendUserTimer resolves and extends the user's timer in one mutation.
func (r *Registry) extendUserTimer(c Caller, userID string, seconds int) (models.RestTimer, error) {
	if seconds <= 0 {
		return models.RestTimer{}, ErrInvalidDuration
	}
	var out models.RestTimer
	err := r.mutate(func(tx *txn) error {
		if err := c.authorize(userID); err != nil {
			return err
		}
		sess, ok := tx.sessions[userID]
		if !ok {
			return ErrUnknownSession
		}
		t, ok := tx.timers[sess.RestTimerID]
		if !ok {
			return ErrUnknownTimer
		}
		if err := extendTarget(&t, seconds); err != nil {
			return err
		}
		t.ElapsedSeconds = t.Elapsed(tx.now)
		tx.timers[t.ID] = t
		out = t
		return nil
	})
	return out, err
}

func (r *Registry) updateTimer(c Caller, id string, fn func(t *models.RestTimer, now time.Time) error) error {
	return r.mutate(func(tx *txn) error {
		t, ok := tx.timers[id]
		if !ok {
			return ErrUnknownTimer
		}
		if err := c.authorize(t.UserID); err != nil {
			return err
		}
		if err := fn(&t, tx.now); err != nil {
			return err
		}
		tx.timers[id] = t
		if sess, ok := tx.sessions[t.UserID]; ok {
			sess.LastActivity = tx.now
			tx.sessions[t.UserID] = sess
		}
		return nil
	})
}

// extendTarget raises the target by seconds, refusing to exceed MaxRestSeconds.
func extendTarget(t *models.RestTimer, seconds int) error {
	if seconds > MaxRestSeconds-t.TargetDurationSeconds {
		return ErrInvalidDuration
	}
	t.TargetDurationSeconds += seconds
	return nil
}
