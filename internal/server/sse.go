package server

import (
	"encoding/json"
	"net/http"

	"github.com/claude/gymrest/internal/notify"
)

const sseBuffer = 16

type eventPayload struct {
	notify.Event
	Message string `json:"message"`
}

// handleEvents streams the caller's own timer events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, userIDFromContext(r))
}

// handleGymEvents streams every user's timer events to the gym master.
func (s *Server) handleGymEvents(w http.ResponseWriter, r *http.Request) {
	s.streamEvents(w, r, "")
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, userID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.events == nil {
		http.Error(w, "event stream disabled", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.events.Subscribe(userID, sseBuffer)
	defer cancel()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}

			data, _ := json.Marshal(eventPayload{Event: ev, Message: ev.Message()})
			w.Write([]byte("event: " + string(ev.Kind) + "\n"))
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))

			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
