package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
	"github.com/go-chi/chi/v5"
)

// timerView is the wire shape of a rest timer, with derived countdown fields.
type timerView struct {
	models.RestTimer
	RemainingSeconds   int    `json:"remaining_seconds"`
	ElapsedFormatted   string `json:"elapsed_formatted"`
	RemainingFormatted string `json:"remaining_formatted"`
}

func newTimerView(t models.RestTimer, now time.Time) timerView {
	t.ElapsedSeconds = t.Elapsed(now)
	remaining := t.Remaining(now)
	return timerView{
		RestTimer:          t,
		RemainingSeconds:   remaining,
		ElapsedFormatted:   notify.FormatTime(t.ElapsedSeconds),
		RemainingFormatted: notify.FormatTime(remaining),
	}
}

type sessionView struct {
	models.WorkoutSession
	RestTimer            *timerView `json:"rest_timer,omitempty"`
	TotalWorkoutDuration int        `json:"total_workout_duration"`
	TotalActiveTime      int        `json:"total_active_time"`
	WorkoutFormatted     string     `json:"workout_formatted"`
	RestFormatted        string     `json:"rest_formatted"`
}

func newSessionView(s models.WorkoutSession, now time.Time) sessionView {
	v := sessionView{
		WorkoutSession:       s,
		TotalWorkoutDuration: s.TotalWorkoutDuration(now),
		TotalActiveTime:      s.TotalActiveTime(now),
		RestFormatted:        notify.FormatTime(s.TotalRestTimeAccumulatedSeconds),
	}
	v.WorkoutFormatted = notify.FormatTime(v.TotalWorkoutDuration)
	if s.RestTimer != nil {
		tv := newTimerView(*s.RestTimer, now)
		v.RestTimer = &tv
	}
	return v
}

func sessionViews(sessions []models.WorkoutSession, now time.Time) []sessionView {
	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionView(s, now))
	}
	return out
}

func timerViews(timers []models.RestTimer, now time.Time) []timerView {
	out := make([]timerView, 0, len(timers))
	for _, t := range timers {
		out = append(out, newTimerView(t, now))
	}
	return out
}

// endedTimer is the response for stop and skip.
type endedTimer struct {
	TimerID          string `json:"timer_id,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	ElapsedFormatted string `json:"elapsed_formatted"`
}

func newEndedTimer(timerID, userID string, elapsed int) endedTimer {
	return endedTimer{
		TimerID:          timerID,
		UserID:           userID,
		ElapsedSeconds:   elapsed,
		ElapsedFormatted: notify.FormatTime(elapsed),
	}
}

type startSessionRequest struct {
	UserName         string `json:"user_name"`
	WorkoutSessionID string `json:"workout_session_id"`
}

type extendRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionViews(s.reg.GetAllActiveSessions(), s.reg.Now()))
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	info := userInfoFromContext(r)
	if req.UserName == "" {
		req.UserName = info.DisplayName
	}

	sess, err := s.reg.StartUserWorkoutSession(engine.AsUser(info.Login), info.Login, req.UserName, req.WorkoutSessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(sess, s.reg.Now()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.reg.GetUserSession(userIDFromContext(r))
	if !ok {
		writeError(w, engine.ErrUnknownSession)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess, s.reg.Now()))
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	uid := userIDFromContext(r)
	sess, err := s.reg.UpdateUserSession(engine.AsUser(uid), uid, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess, s.reg.Now()))
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	sess, err := s.reg.PauseUserSession(engine.AsUser(uid), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess, s.reg.Now()))
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	sess, err := s.reg.ResumeUserSession(engine.AsUser(uid), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess, s.reg.Now()))
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r)
	summary, err := s.reg.EndUserWorkoutSession(engine.AsUser(uid), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.persistSummary(summary))
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req models.StartTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	id, err := s.reg.StartRestTimer(engine.AsUser(userIDFromContext(r)), req)
	if err != nil {
		writeError(w, err)
		return
	}
	t, ok := s.reg.GetRestTimer(id)
	if !ok {
		// Replaced by a concurrent start before we could read it back.
		writeError(w, engine.ErrUnknownTimer)
		return
	}
	writeJSON(w, http.StatusCreated, newTimerView(t, s.reg.Now()))
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	t, ok := s.reg.GetRestTimerForUser(userIDFromContext(r))
	if !ok {
		writeError(w, engine.ErrUnknownTimer)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(t, s.reg.Now()))
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.reg.PauseRestTimer)
}

func (s *Server) handleResumeTimer(w http.ResponseWriter, r *http.Request) {
	s.timerAction(w, r, s.reg.ResumeRestTimer)
}

// timerAction runs a pause or resume and responds with the timer's new state.
func (s *Server) timerAction(w http.ResponseWriter, r *http.Request, action func(engine.Caller, string) error) {
	id := chi.URLParam(r, "id")
	if err := action(engine.AsUser(userIDFromContext(r)), id); err != nil {
		writeError(w, err)
		return
	}
	t, ok := s.reg.GetRestTimer(id)
	if !ok {
		writeError(w, engine.ErrUnknownTimer)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(t, s.reg.Now()))
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	s.endTimer(w, r, s.reg.StopRestTimer)
}

func (s *Server) handleSkipTimer(w http.ResponseWriter, r *http.Request) {
	s.endTimer(w, r, s.reg.SkipRestTimer)
}

func (s *Server) endTimer(w http.ResponseWriter, r *http.Request, end func(engine.Caller, string) (int, error)) {
	id := chi.URLParam(r, "id")
	uid := userIDFromContext(r)
	elapsed, err := end(engine.AsUser(uid), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEndedTimer(id, uid, elapsed))
}

func (s *Server) handleExtendTimer(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	t, err := s.reg.ExtendRestTimer(engine.AsUser(userIDFromContext(r)), chi.URLParam(r, "id"), req.Seconds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(t, s.reg.Now()))
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if s.store == nil {
		writeStoreUnavailable(w)
		return
	}
	summaries, err := s.store.QuerySessionSummaries(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleRestSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var bucket string
	switch r.URL.Query().Get("period") {
	case "", "week":
		bucket = "1 week"
	case "month":
		bucket = "1 month"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "period must be week or month"})
		return
	}
	if s.store == nil {
		writeStoreUnavailable(w)
		return
	}
	rows, err := s.store.GetRestSummary(r.Context(), userIDFromContext(r), start, end, bucket)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeStoreUnavailable(w http.ResponseWriter) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "summary store not configured"})
}

// writeError maps engine errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownTimer), errors.Is(err, engine.ErrUnknownSession):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrSessionExists), errors.Is(err, engine.ErrGymMasterDisabled):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, engine.ErrInvalidDuration), errors.Is(err, engine.ErrInvalidPatch):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
