package mcp

import (
	"context"

	"github.com/claude/gymrest/internal/notify"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolGetGymStatus = mcp.NewTool("get_gym_status",
	mcp.WithDescription("Get gym master status: whether the mode is enabled, the current gym session ID, and how many sessions and rest timers are active."),
)

var toolSetGymMasterMode = mcp.NewTool("set_gym_master_mode",
	mcp.WithDescription("Enable or disable gym master mode. Optionally set the current gym session ID (empty string clears it)."),
	mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether gym master mode is on")),
	mcp.WithString("gym_session_id", mcp.Description("Gym-wide session identifier. Omit to leave unchanged.")),
)

var toolListActiveSessions = mcp.NewTool("list_active_sessions",
	mcp.WithDescription("List every athlete's active workout session with status, current set and accumulated rest. Requires gym master mode."),
)

var toolListActiveTimers = mcp.NewTool("list_active_timers",
	mcp.WithDescription("List every running or paused rest timer with elapsed and remaining seconds. Requires gym master mode."),
)

var toolStopUserTimer = mcp.NewTool("stop_user_timer",
	mcp.WithDescription("Stop an athlete's rest timer. The real elapsed rest is added to their session total."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("Athlete user ID")),
)

var toolSkipUserTimer = mcp.NewTool("skip_user_timer",
	mcp.WithDescription("Skip an athlete's rest timer. Accounted like a stop: real elapsed rest is added."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("Athlete user ID")),
)

var toolExtendUserTimer = mcp.NewTool("extend_user_timer",
	mcp.WithDescription("Add seconds to an athlete's rest target without resetting progress."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("Athlete user ID")),
	mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Seconds to add, must be positive")),
)

var toolEndUserSession = mcp.NewTool("end_user_session",
	mcp.WithDescription("End an athlete's workout session and return the summary (workout duration, active time, rest totals)."),
	mcp.WithString("user_id", mcp.Required(), mcp.Description("Athlete user ID")),
)

// --- Tool handlers ---

func jsonResult(v any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) getGymStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.src.Status(ctx)
	if err != nil {
		h.log.Error("mcp get_gym_status", "error", err)
		return mcp.NewToolResultError("status failed: " + err.Error()), nil
	}
	return jsonResult(status), nil
}

func (h *handlers) setGymMasterMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	enabled, err := req.RequireBool("enabled")
	if err != nil {
		return mcp.NewToolResultError("enabled parameter is required"), nil
	}
	var gymSessionID *string
	if id, ok := req.GetArguments()["gym_session_id"].(string); ok {
		gymSessionID = &id
	}

	status, err := h.src.SetMode(ctx, enabled, gymSessionID)
	if err != nil {
		h.log.Error("mcp set_gym_master_mode", "error", err)
		return mcp.NewToolResultError("set mode failed: " + err.Error()), nil
	}
	return jsonResult(status), nil
}

func (h *handlers) listActiveSessions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := h.src.ActiveSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError("list sessions failed: " + err.Error()), nil
	}
	return jsonResult(sessions), nil
}

// timerRow adds countdown fields to a rest timer for display.
type timerRow struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	ExerciseName     string `json:"exercise_name"`
	SetNumber        int    `json:"set_number"`
	IsPaused         bool   `json:"is_paused"`
	TargetSeconds    int    `json:"target_duration_seconds"`
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Remaining        string `json:"remaining"`
}

func (h *handlers) listActiveTimers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	timers, err := h.src.ActiveTimers(ctx)
	if err != nil {
		return mcp.NewToolResultError("list timers failed: " + err.Error()), nil
	}
	rows := make([]timerRow, 0, len(timers))
	for _, t := range timers {
		remaining := max(t.TargetDurationSeconds-t.ElapsedSeconds, 0)
		rows = append(rows, timerRow{
			ID:               t.ID,
			UserID:           t.UserID,
			ExerciseName:     t.ExerciseName,
			SetNumber:        t.SetNumber,
			IsPaused:         t.IsPaused,
			TargetSeconds:    t.TargetDurationSeconds,
			ElapsedSeconds:   t.ElapsedSeconds,
			RemainingSeconds: remaining,
			Remaining:        notify.FormatTime(remaining),
		})
	}
	return jsonResult(rows), nil
}

func (h *handlers) stopUserTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.endUserTimer(ctx, req, "stop_user_timer", h.src.StopUserTimer)
}

func (h *handlers) skipUserTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.endUserTimer(ctx, req, "skip_user_timer", h.src.SkipUserTimer)
}

func (h *handlers) endUserTimer(ctx context.Context, req mcp.CallToolRequest, tool string, end func(context.Context, string) (int, error)) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	seconds, err := end(ctx, userID)
	if err != nil {
		h.log.Warn("mcp "+tool, "user_id", userID, "error", err)
		return mcp.NewToolResultError(tool + " failed: " + err.Error()), nil
	}
	return jsonResult(map[string]any{
		"user_id":         userID,
		"elapsed_seconds": seconds,
		"elapsed":         notify.FormatTime(seconds),
	}), nil
}

func (h *handlers) extendUserTimer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	seconds, err := req.RequireInt("seconds")
	if err != nil {
		return mcp.NewToolResultError("seconds parameter is required"), nil
	}
	timer, err := h.src.ExtendUserTimer(ctx, userID, seconds)
	if err != nil {
		h.log.Warn("mcp extend_user_timer", "user_id", userID, "error", err)
		return mcp.NewToolResultError("extend_user_timer failed: " + err.Error()), nil
	}
	return jsonResult(timer), nil
}

func (h *handlers) endUserSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id parameter is required"), nil
	}
	summary, err := h.src.EndUserSession(ctx, userID)
	if err != nil {
		h.log.Warn("mcp end_user_session", "user_id", userID, "error", err)
		return mcp.NewToolResultError("end_user_session failed: " + err.Error()), nil
	}
	return jsonResult(summary), nil
}
