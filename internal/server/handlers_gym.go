package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type gymUpdateRequest struct {
	Enabled             *bool   `json:"enabled"`
	CurrentGymSessionID *string `json:"current_gym_session_id"`
}

func (s *Server) handleGymStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gym.Status())
}

// handleGymUpdate toggles gym master mode and sets or clears the current
// gym session ID. Omitted fields are left unchanged.
func (s *Server) handleGymUpdate(w http.ResponseWriter, r *http.Request) {
	var req gymUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Enabled != nil {
		s.gym.SetMode(*req.Enabled)
	}
	if req.CurrentGymSessionID != nil {
		s.gym.SetCurrentGymSessionID(*req.CurrentGymSessionID)
	}
	writeJSON(w, http.StatusOK, s.gym.Status())
}

func (s *Server) handleGymSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.gym.AllActiveSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionViews(sessions, s.reg.Now()))
}

func (s *Server) handleGymTimers(w http.ResponseWriter, r *http.Request) {
	timers, err := s.gym.AllActiveTimers()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timerViews(timers, s.reg.Now()))
}

func (s *Server) handleGymStopTimer(w http.ResponseWriter, r *http.Request) {
	s.gymEndTimer(w, r, s.gym.StopUserTimer)
}

func (s *Server) handleGymSkipTimer(w http.ResponseWriter, r *http.Request) {
	s.gymEndTimer(w, r, s.gym.SkipUserTimer)
}

func (s *Server) gymEndTimer(w http.ResponseWriter, r *http.Request, end func(string) (int, error)) {
	userID := chi.URLParam(r, "userID")
	elapsed, err := end(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEndedTimer("", userID, elapsed))
}

func (s *Server) handleGymExtendTimer(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	t, err := s.gym.ExtendUserTimer(chi.URLParam(r, "userID"), req.Seconds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTimerView(t, s.reg.Now()))
}

func (s *Server) handleGymEndSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.gym.EndUserSession(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.persistSummary(summary))
}
