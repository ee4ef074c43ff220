package engine

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/claude/gymrest/internal/clock"
	"github.com/claude/gymrest/internal/notify"
)

const (
	DefaultTickInterval   = time.Second
	DefaultWarningSeconds = 10
)

// TickResult counts what a single tick did.
type TickResult struct {
	Advanced  int
	Warned    int
	Completed int
}

// Scheduler advances every running timer once per interval.
type Scheduler struct {
	reg      *Registry
	clock    clock.Clock
	interval time.Duration
	warnAt   int
	log      *slog.Logger
}

// NewScheduler creates a Scheduler. Zero interval or warning threshold
// select the defaults (1s, 10s).
func NewScheduler(reg *Registry, clk clock.Clock, interval time.Duration, warningSeconds int, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if warningSeconds <= 0 {
		warningSeconds = DefaultWarningSeconds
	}
	return &Scheduler{
		reg:      reg,
		clock:    clk,
		interval: interval,
		warnAt:   warningSeconds,
		log:      log,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("rest timer scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ticker.C:
			s.Tick(time.Time{})
		case <-ctx.Done():
			s.log.Info("rest timer scheduler stopped")
			return
		}
	}
}

// Tick advances every running timer to now; a zero now reads the clock
// under the registry writer lock. A timer at or past its target
// completes: its target duration, not the overshot elapsed time, is added
// to the session, and it is removed within this same tick. A timer within
// the warning threshold raises its warning once.
func (s *Scheduler) Tick(now time.Time) TickResult {
	var res TickResult
	if len(s.reg.snapshot().timers) == 0 {
		return res
	}

	_ = s.reg.mutateAt(now, func(tx *txn) error {
		now := tx.now
		ids := make([]string, 0, len(tx.timers))
		for id := range tx.timers {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		for _, id := range ids {
			t := tx.timers[id]
			if !t.IsActive || t.IsPaused {
				continue
			}
			res.Advanced++
			elapsed := t.Elapsed(now)

			if elapsed >= t.TargetDurationSeconds {
				tx.endTimer(id, notify.KindCompletion)
				res.Completed++
				s.log.Info("rest timer completed", "timer_id", id, "user_id", t.UserID, "target", t.TargetDurationSeconds)
				continue
			}

			remaining := t.TargetDurationSeconds - elapsed
			if remaining <= s.warnAt && !t.Warned {
				t.Warned = true
				res.Warned++
				tx.events = append(tx.events, notify.Event{
					Kind:         notify.KindWarning,
					TimerID:      id,
					UserID:       t.UserID,
					ExerciseName: t.ExerciseName,
					SetNumber:    t.SetNumber,
					Seconds:      remaining,
					At:           now,
				})
			}
			t.ElapsedSeconds = elapsed
			tx.timers[id] = t
		}
		return nil
	})
	return res
}
