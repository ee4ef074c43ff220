package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/gymrest/internal/clock"
	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

var t0 = time.Date(2025, 6, 2, 18, 0, 0, 0, time.UTC)

type memStore struct {
	saved []models.SessionSummary
	err   error
}

func (m *memStore) InsertSessionSummary(_ context.Context, s models.SessionSummary) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, s)
	return int64(len(m.saved)), nil
}

type testGym struct {
	reg   *engine.Registry
	gym   *engine.GymMaster
	clock *clock.Manual
	store *memStore
	h     *handlers
}

func newTestGym(t *testing.T) *testGym {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(t0)
	reg := engine.NewRegistry(clk, nil, log)
	gym := engine.NewGymMaster(reg, log)
	store := &memStore{}
	return &testGym{
		reg:   reg,
		gym:   gym,
		clock: clk,
		store: store,
		h:     &handlers{src: Local{Gym: gym, Store: store}, log: log},
	}
}

func (g *testGym) resting(t *testing.T, userID string, target int) {
	t.Helper()
	if _, err := g.reg.StartUserWorkoutSession(engine.AsUser(userID), userID, userID, "ws-"+userID); err != nil {
		t.Fatal(err)
	}
	if _, err := g.reg.StartRestTimer(engine.AsUser(userID), models.StartTimerRequest{
		ExerciseName:          "Squat",
		TargetDurationSeconds: target,
	}); err != nil {
		t.Fatal(err)
	}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Name: name, Arguments: args}}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

// TestNewRegistersTools verifies the server builds with every tool.
func TestNewRegistersTools(t *testing.T) {
	g := newTestGym(t)
	if s := New(g.h.src, "test", g.h.log); s == nil {
		t.Fatal("New returned nil")
	}
}

// TestToolsRequireGymMasterMode verifies listing fails while the mode is off.
func TestToolsRequireGymMasterMode(t *testing.T) {
	g := newTestGym(t)
	ctx := context.Background()

	res, err := g.h.listActiveTimers(ctx, callTool("list_active_timers", nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("list_active_timers with mode off should be an error result")
	}
}

// TestSetGymMasterMode verifies enabling the mode and setting the gym session.
func TestSetGymMasterMode(t *testing.T) {
	g := newTestGym(t)
	res, err := g.h.setGymMasterMode(context.Background(), callTool("set_gym_master_mode", map[string]any{
		"enabled":        true,
		"gym_session_id": "evening-class",
	}))
	if err != nil {
		t.Fatal(err)
	}

	var status engine.GymStatus
	decodeResult(t, res, &status)
	if !status.Enabled {
		t.Error("enabled = false, want true")
	}
	if id, ok := g.gym.CurrentGymSessionID(); !ok || id != "evening-class" {
		t.Errorf("gym session = %q, want evening-class", id)
	}
}

// TestListActiveTimers verifies countdown fields are derived per timer.
func TestListActiveTimers(t *testing.T) {
	g := newTestGym(t)
	g.gym.SetMode(true)
	g.resting(t, "alice", 90)
	g.clock.Advance(30 * time.Second)

	res, err := g.h.listActiveTimers(context.Background(), callTool("list_active_timers", nil))
	if err != nil {
		t.Fatal(err)
	}
	var rows []timerRow
	decodeResult(t, res, &rows)
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].ElapsedSeconds != 30 || rows[0].RemainingSeconds != 60 {
		t.Errorf("elapsed/remaining = %d/%d, want 30/60", rows[0].ElapsedSeconds, rows[0].RemainingSeconds)
	}
	if rows[0].Remaining != "1:00" {
		t.Errorf("remaining = %q, want 1:00", rows[0].Remaining)
	}
}

// TestStopUserTimerTool verifies the operator stop adds the real rest.
func TestStopUserTimerTool(t *testing.T) {
	g := newTestGym(t)
	g.gym.SetMode(true)
	g.resting(t, "alice", 90)
	g.clock.Advance(40 * time.Second)

	res, err := g.h.stopUserTimer(context.Background(), callTool("stop_user_timer", map[string]any{"user_id": "alice"}))
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	decodeResult(t, res, &out)
	if out["elapsed_seconds"] != float64(40) {
		t.Errorf("elapsed_seconds = %v, want 40", out["elapsed_seconds"])
	}
	sess, _ := g.reg.GetUserSession("alice")
	if sess.TotalRestTimeAccumulatedSeconds != 40 {
		t.Errorf("total rest = %d, want 40", sess.TotalRestTimeAccumulatedSeconds)
	}

	// A second stop finds no timer.
	res, _ = g.h.stopUserTimer(context.Background(), callTool("stop_user_timer", map[string]any{"user_id": "alice"}))
	if !res.IsError {
		t.Error("second stop should be an error result")
	}
}

// TestExtendUserTimerTool verifies the target grows and bad input is rejected.
func TestExtendUserTimerTool(t *testing.T) {
	g := newTestGym(t)
	g.gym.SetMode(true)
	g.resting(t, "alice", 60)

	res, err := g.h.extendUserTimer(context.Background(), callTool("extend_user_timer", map[string]any{
		"user_id": "alice",
		"seconds": float64(30),
	}))
	if err != nil {
		t.Fatal(err)
	}
	var timer models.RestTimer
	decodeResult(t, res, &timer)
	if timer.TargetDurationSeconds != 90 {
		t.Errorf("target = %d, want 90", timer.TargetDurationSeconds)
	}

	res, _ = g.h.extendUserTimer(context.Background(), callTool("extend_user_timer", map[string]any{"user_id": "alice"}))
	if !res.IsError {
		t.Error("extend without seconds should be an error result")
	}
}

// TestEndUserSessionTool verifies the summary is returned and recorded.
func TestEndUserSessionTool(t *testing.T) {
	g := newTestGym(t)
	g.gym.SetMode(true)
	g.resting(t, "alice", 90)
	g.clock.Advance(20 * time.Second)

	res, err := g.h.endUserSession(context.Background(), callTool("end_user_session", map[string]any{"user_id": "alice"}))
	if err != nil {
		t.Fatal(err)
	}
	var summary models.SessionSummary
	decodeResult(t, res, &summary)
	if summary.TotalRestTimeAccumulatedSeconds != 20 {
		t.Errorf("total rest = %d, want 20", summary.TotalRestTimeAccumulatedSeconds)
	}
	if summary.ID != 1 || len(g.store.saved) != 1 {
		t.Errorf("summary id = %d, saved = %d, want 1/1", summary.ID, len(g.store.saved))
	}
	if _, ok := g.reg.GetUserSession("alice"); ok {
		t.Error("session still present after end_user_session")
	}
}

// TestLocalEndSessionStoreFailure verifies a store error surfaces after the
// session has already ended.
func TestLocalEndSessionStoreFailure(t *testing.T) {
	g := newTestGym(t)
	g.gym.SetMode(true)
	g.resting(t, "alice", 90)
	g.store.err = errors.New("disk full")

	src := Local{Gym: g.gym, Store: g.store}
	if _, err := src.EndUserSession(context.Background(), "alice"); err == nil {
		t.Error("EndUserSession error = nil, want store failure")
	}
	if _, ok := g.reg.GetUserSession("alice"); ok {
		t.Error("session should be gone even when persistence fails")
	}
}

// TestGymBoardResource verifies the board omits sessions while disabled.
func TestGymBoardResource(t *testing.T) {
	g := newTestGym(t)
	g.resting(t, "alice", 90)

	req := mcp.ReadResourceRequest{Params: mcp.ReadResourceParams{URI: "gymrest://gym_board"}}
	contents, err := g.h.gymBoard(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	var board map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &board); err != nil {
		t.Fatal(err)
	}
	if _, ok := board["sessions"]; ok {
		t.Error("sessions present while gym master mode is disabled")
	}

	g.gym.SetMode(true)
	contents, _ = g.h.gymBoard(context.Background(), req)
	text = contents[0].(mcp.TextResourceContents).Text
	board = nil
	if err := json.Unmarshal([]byte(text), &board); err != nil {
		t.Fatal(err)
	}
	if _, ok := board["sessions"]; !ok {
		t.Error("sessions missing while gym master mode is enabled")
	}
}
