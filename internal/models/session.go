package models

import "time"

// SessionStatus is the coarse state of a workout session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusResting   SessionStatus = "RESTING"
	StatusPaused    SessionStatus = "PAUSED"
	StatusCompleted SessionStatus = "COMPLETED"
)

// WorkoutSession aggregates one user's workout timing. It owns at most one
// rest timer, referenced by RestTimerID.
type WorkoutSession struct {
	UserID              string        `json:"user_id"`
	UserName            string        `json:"user_name"`
	WorkoutSessionID    string        `json:"workout_session_id"`
	Status              SessionStatus `json:"status"`
	Paused              bool          `json:"paused"`
	CurrentSet          int           `json:"current_set"`
	TotalSets           int           `json:"total_sets"`
	CurrentExerciseID   string        `json:"current_exercise_id,omitempty"`
	CurrentExerciseName string        `json:"current_exercise_name,omitempty"`
	RestTimerID         string        `json:"rest_timer_id,omitempty"`
	WorkoutStartTime    time.Time     `json:"workout_start_time"`
	LastActivity        time.Time     `json:"last_activity"`
	RestCount           int           `json:"rest_count"`

	TotalRestTimeAccumulatedSeconds int `json:"total_rest_seconds"`

	// RestTimer is a copy of the owned timer, filled in on reads.
	RestTimer *RestTimer `json:"rest_timer,omitempty"`
}

// DeriveStatus recomputes Status from the timer and pause axes.
func (s *WorkoutSession) DeriveStatus() {
	switch {
	case s.Status == StatusCompleted:
	case s.RestTimerID != "":
		s.Status = StatusResting
	case s.Paused:
		s.Status = StatusPaused
	default:
		s.Status = StatusActive
	}
}

// TotalWorkoutDuration returns seconds since the workout started.
func (s WorkoutSession) TotalWorkoutDuration(now time.Time) int {
	d := now.Sub(s.WorkoutStartTime)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// TotalActiveTime is the workout duration minus accumulated rest.
func (s WorkoutSession) TotalActiveTime(now time.Time) int {
	active := s.TotalWorkoutDuration(now) - s.TotalRestTimeAccumulatedSeconds
	if active < 0 {
		return 0
	}
	return active
}

// SessionPatch is a partial update of progression fields. Nil fields are
// left untouched.
type SessionPatch struct {
	UserName            *string `json:"user_name,omitempty"`
	WorkoutSessionID    *string `json:"workout_session_id,omitempty"`
	CurrentSet          *int    `json:"current_set,omitempty"`
	TotalSets           *int    `json:"total_sets,omitempty"`
	CurrentExerciseID   *string `json:"current_exercise_id,omitempty"`
	CurrentExerciseName *string `json:"current_exercise_name,omitempty"`
	Paused              *bool   `json:"paused,omitempty"`
}

// Valid reports whether the patch can be applied.
func (p SessionPatch) Valid() bool {
	if p.CurrentSet != nil && *p.CurrentSet < 0 {
		return false
	}
	if p.TotalSets != nil && *p.TotalSets < 0 {
		return false
	}
	return true
}

// Apply copies the non-nil fields onto s.
func (p SessionPatch) Apply(s *WorkoutSession) {
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.WorkoutSessionID != nil {
		s.WorkoutSessionID = *p.WorkoutSessionID
	}
	if p.CurrentSet != nil {
		s.CurrentSet = *p.CurrentSet
	}
	if p.TotalSets != nil {
		s.TotalSets = *p.TotalSets
	}
	if p.CurrentExerciseID != nil {
		s.CurrentExerciseID = *p.CurrentExerciseID
	}
	if p.CurrentExerciseName != nil {
		s.CurrentExerciseName = *p.CurrentExerciseName
	}
	if p.Paused != nil {
		s.Paused = *p.Paused
	}
}

// SessionSummary is the final accounting handed back by endUserWorkoutSession
// and persisted by the caller.
type SessionSummary struct {
	ID                   int64         `json:"id,omitempty"`
	UserID               string        `json:"user_id"`
	UserName             string        `json:"user_name"`
	WorkoutSessionID     string        `json:"workout_session_id"`
	Status               SessionStatus `json:"status"`
	StartedAt            time.Time     `json:"started_at"`
	EndedAt              time.Time     `json:"ended_at"`
	TotalWorkoutDuration int           `json:"total_workout_duration"`
	TotalActiveTime      int           `json:"total_active_time"`
	CompletedSets        int           `json:"completed_sets"`
	TotalSets            int           `json:"total_sets"`
	RestCount            int           `json:"rest_count"`

	TotalRestTimeAccumulatedSeconds int `json:"total_rest_seconds"`
}
