package engine

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/gymrest/internal/clock"
	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
)

var t0 = time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(ev notify.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) count(kind notify.Kind) int {
	n := 0
	for _, k := range r.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	reg   *Registry
	clock *clock.Manual
	sched *Scheduler
	rec   *recorder
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewManual(t0)
	rec := &recorder{}
	log := discardLogger()
	reg := NewRegistry(clk, rec, log)
	return &fixture{
		reg:   reg,
		clock: clk,
		sched: NewScheduler(reg, clk, 0, 0, log),
		rec:   rec,
	}
}

// startSession opens a session for userID or fails the test.
func (f *fixture) startSession(t *testing.T, userID string) {
	t.Helper()
	if _, err := f.reg.StartUserWorkoutSession(AsUser(userID), userID, "Name "+userID, "ws-"+userID); err != nil {
		t.Fatalf("StartUserWorkoutSession(%s): %v", userID, err)
	}
}

// startTimer starts a rest timer with the given target or fails the test.
func (f *fixture) startTimer(t *testing.T, userID string, target int) string {
	t.Helper()
	id, err := f.reg.StartRestTimer(AsUser(userID), models.StartTimerRequest{
		UserID:                userID,
		ExerciseID:            "bench",
		ExerciseName:          "Bench Press",
		SetNumber:             1,
		TargetDurationSeconds: target,
	})
	if err != nil {
		t.Fatalf("StartRestTimer(%s): %v", userID, err)
	}
	return id
}

// advance moves the clock forward by n seconds, ticking once per second.
func (f *fixture) advance(n int) {
	for range n {
		f.sched.Tick(f.clock.Advance(time.Second))
	}
}

func (f *fixture) restTotal(t *testing.T, userID string) int {
	t.Helper()
	sess, ok := f.reg.GetUserSession(userID)
	if !ok {
		t.Fatalf("session %s not found", userID)
	}
	return sess.TotalRestTimeAccumulatedSeconds
}
