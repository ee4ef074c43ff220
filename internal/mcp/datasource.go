package mcp

import (
	"context"

	"github.com/claude/gymrest/internal/client"
	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
)

// GymSource abstracts the gym master operations for MCP tools. Local (in
// process) and *client.Client (remote via REST API) satisfy it.
type GymSource interface {
	Status(ctx context.Context) (engine.GymStatus, error)
	SetMode(ctx context.Context, enabled bool, gymSessionID *string) (engine.GymStatus, error)
	ActiveSessions(ctx context.Context) ([]models.WorkoutSession, error)
	ActiveTimers(ctx context.Context) ([]models.RestTimer, error)
	StopUserTimer(ctx context.Context, userID string) (int, error)
	SkipUserTimer(ctx context.Context, userID string) (int, error)
	ExtendUserTimer(ctx context.Context, userID string, seconds int) (models.RestTimer, error)
	EndUserSession(ctx context.Context, userID string) (models.SessionSummary, error)
}

// Compile-time check: the REST client satisfies GymSource.
var _ GymSource = (*client.Client)(nil)

// SummaryRecorder persists summaries of sessions ended through MCP.
type SummaryRecorder interface {
	InsertSessionSummary(ctx context.Context, s models.SessionSummary) (int64, error)
}

// Local serves GymSource from the in-process gym master.
type Local struct {
	Gym   *engine.GymMaster
	Store SummaryRecorder
}

var _ GymSource = Local{}

func (l Local) Status(context.Context) (engine.GymStatus, error) {
	return l.Gym.Status(), nil
}

func (l Local) SetMode(_ context.Context, enabled bool, gymSessionID *string) (engine.GymStatus, error) {
	l.Gym.SetMode(enabled)
	if gymSessionID != nil {
		l.Gym.SetCurrentGymSessionID(*gymSessionID)
	}
	return l.Gym.Status(), nil
}

func (l Local) ActiveSessions(context.Context) ([]models.WorkoutSession, error) {
	return l.Gym.AllActiveSessions()
}

func (l Local) ActiveTimers(context.Context) ([]models.RestTimer, error) {
	return l.Gym.AllActiveTimers()
}

func (l Local) StopUserTimer(_ context.Context, userID string) (int, error) {
	return l.Gym.StopUserTimer(userID)
}

func (l Local) SkipUserTimer(_ context.Context, userID string) (int, error) {
	return l.Gym.SkipUserTimer(userID)
}

func (l Local) ExtendUserTimer(_ context.Context, userID string, seconds int) (models.RestTimer, error) {
	return l.Gym.ExtendUserTimer(userID, seconds)
}

// EndUserSession ends the session and records its summary when a store is
// configured. A storage failure is returned after the session has ended.
func (l Local) EndUserSession(ctx context.Context, userID string) (models.SessionSummary, error) {
	summary, err := l.Gym.EndUserSession(userID)
	if err != nil || l.Store == nil {
		return summary, err
	}
	id, err := l.Store.InsertSessionSummary(ctx, summary)
	if err != nil {
		return summary, err
	}
	summary.ID = id
	return summary, nil
}
