package notify

import (
	"context"
	"errors"
	"log/slog"
)

// Sink receives notifications. Implementations may block or fail; the
// Dispatcher isolates the engine from both.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// Nop accepts and ignores every event.
type Nop struct{}

func (Nop) Deliver(context.Context, Event) error { return nil }

// LogSink writes each event to a slog.Logger.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Deliver(_ context.Context, ev Event) error {
	s.Log.Info("rest timer notification",
		"kind", ev.Kind,
		"timer_id", ev.TimerID,
		"user_id", ev.UserID,
		"message", ev.Message(),
	)
	return nil
}

// Multi fans an event out to several sinks. Every sink is attempted.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
