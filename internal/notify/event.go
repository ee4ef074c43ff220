// Package notify carries best-effort rest timer notifications from the
// engine to sinks (logs, SSE subscribers) without ever blocking the caller.
package notify

import (
	"fmt"
	"time"
)

// Kind identifies what happened to a rest timer.
type Kind string

const (
	KindWarning    Kind = "warning"
	KindCompletion Kind = "completion"
	KindStopped    Kind = "stopped"
	KindSkipped    Kind = "skipped"
)

// Event is a single rest timer notification.
type Event struct {
	Kind         Kind      `json:"kind"`
	TimerID      string    `json:"timer_id"`
	UserID       string    `json:"user_id"`
	ExerciseName string    `json:"exercise_name"`
	SetNumber    int       `json:"set_number"`
	Seconds      int       `json:"seconds"`
	At           time.Time `json:"at"`
}

// Message returns the human-readable text shown to the athlete. Seconds is
// the remaining time for warnings and the rested time otherwise.
func (e Event) Message() string {
	switch e.Kind {
	case KindWarning:
		return fmt.Sprintf("%d seconds left, get ready for %s", e.Seconds, e.exercise())
	case KindCompletion:
		return fmt.Sprintf("Rest complete! Time for %s", e.exercise())
	case KindStopped:
		return fmt.Sprintf("Rest ended after %s", FormatTime(e.Seconds))
	case KindSkipped:
		return fmt.Sprintf("Rest skipped after %s", FormatTime(e.Seconds))
	default:
		return string(e.Kind)
	}
}

func (e Event) exercise() string {
	name := e.ExerciseName
	if name == "" {
		name = "your next set"
	}
	if e.SetNumber > 0 {
		return fmt.Sprintf("%s (set %d)", name, e.SetNumber+1)
	}
	return name
}

// Publisher accepts events without blocking.
type Publisher interface {
	Publish(ev Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}
