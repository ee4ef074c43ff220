// Package engine tracks in-memory workout sessions and their rest timers,
// advances them on a shared clock and lets a gym master operate on them.
package engine

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/gymrest/internal/clock"
	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
	"github.com/google/uuid"
)

// state is an immutable snapshot of the registry. It is never modified
// after being installed; writers clone it, edit the clone and swap.
type state struct {
	sessions map[string]models.WorkoutSession // by user ID
	timers   map[string]models.RestTimer      // by timer ID
}

func (s *state) clone() *state {
	return &state{
		sessions: maps.Clone(s.sessions),
		timers:   maps.Clone(s.timers),
	}
}

// txn is the working copy handed to a mutation.
type txn struct {
	*state
	now    time.Time
	events []notify.Event
}

// Registry is the single source of truth for sessions and timers. Readers
// load the current snapshot without locking; writers are serialized by mu
// and install a new snapshot atomically, so no reader ever observes a
// half-applied update.
type Registry struct {
	clock clock.Clock
	pub   notify.Publisher
	log   *slog.Logger
	newID func() string

	mu  sync.Mutex
	cur atomic.Pointer[state]
}

// NewRegistry creates an empty Registry. A nil publisher discards events.
func NewRegistry(clk clock.Clock, pub notify.Publisher, log *slog.Logger) *Registry {
	if pub == nil {
		pub = notify.Discard
	}
	r := &Registry{
		clock: clk,
		pub:   pub,
		log:   log,
		newID: uuid.NewString,
	}
	r.cur.Store(&state{
		sessions: map[string]models.WorkoutSession{},
		timers:   map[string]models.RestTimer{},
	})
	return r
}

// Now returns the registry clock's current instant.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

func (r *Registry) snapshot() *state {
	return r.cur.Load()
}

// mutate applies fn to a copy of the current state and installs the copy
// if fn succeeds. now is read under the writer lock so concurrent
// operations observe a monotonic clock in commit order. Events collected
// by fn are published after the lock is released.
func (r *Registry) mutate(fn func(tx *txn) error) error {
	return r.mutateAt(time.Time{}, fn)
}

func (r *Registry) mutateAt(at time.Time, fn func(tx *txn) error) error {
	r.mu.Lock()
	now := at
	if now.IsZero() {
		now = r.clock.Now()
	}
	tx := &txn{state: r.snapshot().clone(), now: now}
	err := fn(tx)
	if err == nil {
		r.cur.Store(tx.state)
	}
	r.mu.Unlock()

	if err != nil {
		return err
	}
	r.publish(tx.events)
	return nil
}

func (r *Registry) publish(events []notify.Event) {
	for _, ev := range events {
		r.pub.Publish(ev)
	}
}

// endTimer folds a terminal timer into its owning session and removes it.
// Completion accounts the target duration; stop and skip account the real
// elapsed time.
func (tx *txn) endTimer(id string, kind notify.Kind) int {
	t, ok := tx.timers[id]
	if !ok {
		return 0
	}
	seconds := t.Elapsed(tx.now)
	if kind == notify.KindCompletion {
		seconds = t.TargetDurationSeconds
	}
	delete(tx.timers, id)

	if sess, ok := tx.sessions[t.UserID]; ok && sess.RestTimerID == id {
		sess.TotalRestTimeAccumulatedSeconds += seconds
		sess.RestCount++
		sess.RestTimerID = ""
		sess.LastActivity = tx.now
		sess.DeriveStatus()
		tx.sessions[t.UserID] = sess
	}

	tx.events = append(tx.events, notify.Event{
		Kind:         kind,
		TimerID:      id,
		UserID:       t.UserID,
		ExerciseName: t.ExerciseName,
		SetNumber:    t.SetNumber,
		Seconds:      seconds,
		At:           tx.now,
	})
	return seconds
}

// GetRestTimer returns the timer with the given ID.
func (r *Registry) GetRestTimer(id string) (models.RestTimer, bool) {
	t, ok := r.snapshot().timers[id]
	if !ok {
		return models.RestTimer{}, false
	}
	t.ElapsedSeconds = t.Elapsed(r.clock.Now())
	return t, true
}

// GetRestTimerForUser returns the user's active rest timer, if any.
func (r *Registry) GetRestTimerForUser(userID string) (models.RestTimer, bool) {
	st := r.snapshot()
	sess, ok := st.sessions[userID]
	if !ok || sess.RestTimerID == "" {
		return models.RestTimer{}, false
	}
	t, ok := st.timers[sess.RestTimerID]
	if !ok {
		return models.RestTimer{}, false
	}
	t.ElapsedSeconds = t.Elapsed(r.clock.Now())
	return t, true
}

// GetUserSession returns the user's session with its timer attached.
func (r *Registry) GetUserSession(userID string) (models.WorkoutSession, bool) {
	st := r.snapshot()
	sess, ok := st.sessions[userID]
	if !ok {
		return models.WorkoutSession{}, false
	}
	return view(st, sess, r.clock.Now()), true
}

// GetAllActiveSessions lists every session ordered by user ID.
func (r *Registry) GetAllActiveSessions() []models.WorkoutSession {
	st := r.snapshot()
	now := r.clock.Now()
	out := make([]models.WorkoutSession, 0, len(st.sessions))
	for _, sess := range st.sessions {
		out = append(out, view(st, sess, now))
	}
	slices.SortFunc(out, func(a, b models.WorkoutSession) int {
		return strings.Compare(a.UserID, b.UserID)
	})
	return out
}

// AllActiveTimers lists every active timer ordered by start time.
func (r *Registry) AllActiveTimers() []models.RestTimer {
	st := r.snapshot()
	now := r.clock.Now()
	out := make([]models.RestTimer, 0, len(st.timers))
	for _, t := range st.timers {
		t.ElapsedSeconds = t.Elapsed(now)
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.RestTimer) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func view(st *state, sess models.WorkoutSession, now time.Time) models.WorkoutSession {
	if sess.RestTimerID != "" {
		if t, ok := st.timers[sess.RestTimerID]; ok {
			t.ElapsedSeconds = t.Elapsed(now)
			sess.RestTimer = &t
		}
	}
	return sess
}
