package models

import "time"

// RestTimer tracks one rest interval between sets. Elapsed time is derived
// from StartTime, which is shifted forward on resume so that paused time
// never counts.
type RestTimer struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	ExerciseID            string    `json:"exercise_id"`
	ExerciseName          string    `json:"exercise_name"`
	SetNumber             int       `json:"set_number"`
	StartTime             time.Time `json:"start_time"`
	PausedAt              time.Time `json:"paused_at,omitzero"`
	TargetDurationSeconds int       `json:"target_duration_seconds"`
	IsActive              bool      `json:"is_active"`
	IsPaused              bool      `json:"is_paused"`
	AutoStarted           bool      `json:"auto_started"`
	Warned                bool      `json:"warned"`

	// ElapsedSeconds is the value observed by the last tick or mutation.
	// Readers that have a clock should prefer Elapsed(now).
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// Elapsed returns whole seconds of rest at now. While paused the value is
// frozen at the pause instant.
func (t RestTimer) Elapsed(now time.Time) int {
	ref := now
	if t.IsPaused {
		ref = t.PausedAt
	}
	d := ref.Sub(t.StartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// Remaining returns the seconds left until the target, never negative.
func (t RestTimer) Remaining(now time.Time) int {
	r := t.TargetDurationSeconds - t.Elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}

// StartTimerRequest carries the arguments of a rest timer start.
type StartTimerRequest struct {
	UserID                string `json:"user_id"`
	ExerciseID            string `json:"exercise_id"`
	ExerciseName          string `json:"exercise_name"`
	SetNumber             int    `json:"set_number"`
	TargetDurationSeconds int    `json:"target_duration_seconds"`
	AutoStart             bool   `json:"auto_start"`
}
