package engine

import (
	"log/slog"
	"sync"

	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
)

// GymStatus describes gym master mode and the registry at a glance.
type GymStatus struct {
	Enabled             bool    `json:"enabled"`
	CurrentGymSessionID *string `json:"current_gym_session_id"`
	ActiveSessions      int     `json:"active_sessions"`
	ActiveTimers        int     `json:"active_timers"`
}

// GymMaster lets an operator observe and act on every session in the
// registry. Its actions run the same registry operations a user would,
// with an operator Caller that skips the ownership check.
type GymMaster struct {
	reg *Registry
	log *slog.Logger

	mu           sync.RWMutex
	enabled      bool
	gymSessionID string
}

// NewGymMaster creates a controller with the mode disabled.
func NewGymMaster(reg *Registry, log *slog.Logger) *GymMaster {
	return &GymMaster{reg: reg, log: log}
}

func (g *GymMaster) operator() Caller {
	return Caller{operator: true}
}

// SetMode enables or disables gym master mode.
func (g *GymMaster) SetMode(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	g.log.Info("gym master mode changed", "enabled", enabled)
}

// Enabled reports whether gym master mode is on.
func (g *GymMaster) Enabled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.enabled
}

// SetCurrentGymSessionID records the gym-wide session being run. An empty
// id clears it.
func (g *GymMaster) SetCurrentGymSessionID(id string) {
	g.mu.Lock()
	g.gymSessionID = id
	g.mu.Unlock()
}

// CurrentGymSessionID returns the gym-wide session id, if set.
func (g *GymMaster) CurrentGymSessionID() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gymSessionID, g.gymSessionID != ""
}

// Status reports mode, gym session and registry sizes.
func (g *GymMaster) Status() GymStatus {
	st := g.reg.snapshot()
	out := GymStatus{
		Enabled:        g.Enabled(),
		ActiveSessions: len(st.sessions),
		ActiveTimers:   len(st.timers),
	}
	if id, ok := g.CurrentGymSessionID(); ok {
		out.CurrentGymSessionID = &id
	}
	return out
}

func (g *GymMaster) check() error {
	if !g.Enabled() {
		return ErrGymMasterDisabled
	}
	return nil
}

// AllActiveSessions lists every user's session.
func (g *GymMaster) AllActiveSessions() ([]models.WorkoutSession, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.reg.GetAllActiveSessions(), nil
}

// AllActiveTimers lists every running or paused rest timer.
func (g *GymMaster) AllActiveTimers() ([]models.RestTimer, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.reg.AllActiveTimers(), nil
}

// StopUserTimer stops another user's rest timer.
func (g *GymMaster) StopUserTimer(userID string) (int, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	seconds, err := g.reg.endUserTimer(g.operator(), userID, notify.KindStopped)
	if err == nil {
		g.log.Info("gym master stopped timer", "user_id", userID, "seconds", seconds)
	}
	return seconds, err
}

// SkipUserTimer skips another user's rest timer.
func (g *GymMaster) SkipUserTimer(userID string) (int, error) {
	if err := g.check(); err != nil {
		return 0, err
	}
	seconds, err := g.reg.endUserTimer(g.operator(), userID, notify.KindSkipped)
	if err == nil {
		g.log.Info("gym master skipped timer", "user_id", userID, "seconds", seconds)
	}
	return seconds, err
}

// ExtendUserTimer extends another user's rest timer.
func (g *GymMaster) ExtendUserTimer(userID string, seconds int) (models.RestTimer, error) {
	if err := g.check(); err != nil {
		return models.RestTimer{}, err
	}
	return g.reg.extendUserTimer(g.operator(), userID, seconds)
}

// EndUserSession ends another user's workout session.
func (g *GymMaster) EndUserSession(userID string) (models.SessionSummary, error) {
	if err := g.check(); err != nil {
		return models.SessionSummary{}, err
	}
	summary, err := g.reg.EndUserWorkoutSession(g.operator(), userID)
	if err == nil {
		g.log.Info("gym master ended session", "user_id", userID)
	}
	return summary, err
}
