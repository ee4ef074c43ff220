package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
)

// newTestServer routes requests by "METHOD path" and checks the API key.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("X-API-Key = %q, want secret", got)
		}
		h, ok := handlers[r.Method+" "+r.URL.EscapedPath()]
		if !ok {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.EscapedPath())
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
}

func writeTestJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatal(err)
	}
}

// TestStatus verifies the status call decodes the gym status.
func TestStatus(t *testing.T) {
	id := "gym-42"
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/gym": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, engine.GymStatus{Enabled: true, CurrentGymSessionID: &id, ActiveTimers: 3})
		},
	})
	defer ts.Close()

	st, err := New(ts.URL+"/", "secret").Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Enabled || st.ActiveTimers != 3 {
		t.Errorf("status = %+v, want enabled with 3 timers", st)
	}
	if st.CurrentGymSessionID == nil || *st.CurrentGymSessionID != "gym-42" {
		t.Errorf("gym session = %v, want gym-42", st.CurrentGymSessionID)
	}
}

// TestSetMode verifies the PUT body carries the mode and gym session ID.
func TestSetMode(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"PUT /api/v1/gym": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["enabled"] != false {
				t.Errorf("enabled = %v, want false", body["enabled"])
			}
			if body["current_gym_session_id"] != "" {
				t.Errorf("current_gym_session_id = %v, want empty", body["current_gym_session_id"])
			}
			writeTestJSON(t, w, http.StatusOK, engine.GymStatus{})
		},
	})
	defer ts.Close()

	none := ""
	if _, err := New(ts.URL, "secret").SetMode(context.Background(), false, &none); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
}

// TestStopUserTimer verifies the user ID is path-escaped and the rested
// seconds are returned.
func TestStopUserTimer(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/gym/users/alice%2Fb/timer/stop": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, map[string]any{"user_id": "alice/b", "elapsed_seconds": 40})
		},
	})
	defer ts.Close()

	got, err := New(ts.URL, "secret").StopUserTimer(context.Background(), "alice/b")
	if err != nil {
		t.Fatalf("StopUserTimer: %v", err)
	}
	if got != 40 {
		t.Errorf("elapsed = %d, want 40", got)
	}
}

// TestExtendUserTimer verifies the extend body and decoded timer.
func TestExtendUserTimer(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/gym/users/alice/timer/extend": func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Seconds int `json:"seconds"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Seconds != 30 {
				t.Errorf("seconds = %d, want 30", body.Seconds)
			}
			writeTestJSON(t, w, http.StatusOK, models.RestTimer{ID: "t1", TargetDurationSeconds: 90, IsActive: true})
		},
	})
	defer ts.Close()

	timer, err := New(ts.URL, "secret").ExtendUserTimer(context.Background(), "alice", 30)
	if err != nil {
		t.Fatalf("ExtendUserTimer: %v", err)
	}
	if timer.ID != "t1" || timer.TargetDurationSeconds != 90 {
		t.Errorf("timer = %+v, want t1 with target 90", timer)
	}
}

// TestEndUserSession verifies the summary is decoded from the DELETE call.
func TestEndUserSession(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"DELETE /api/v1/gym/users/alice/session": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusOK, models.SessionSummary{UserID: "alice", TotalRestTimeAccumulatedSeconds: 120, RestCount: 2})
		},
	})
	defer ts.Close()

	summary, err := New(ts.URL, "secret").EndUserSession(context.Background(), "alice")
	if err != nil {
		t.Fatalf("EndUserSession: %v", err)
	}
	if summary.TotalRestTimeAccumulatedSeconds != 120 || summary.RestCount != 2 {
		t.Errorf("summary = %+v, want 120s over 2 rests", summary)
	}
}

// TestAPIError verifies error bodies surface as *APIError.
func TestAPIError(t *testing.T) {
	ts := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/gym/timers": func(w http.ResponseWriter, r *http.Request) {
			writeTestJSON(t, w, http.StatusConflict, map[string]string{"error": "gym master mode is disabled"})
		},
	})
	defer ts.Close()

	_, err := New(ts.URL, "secret").ActiveTimers(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "gym master mode is disabled" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if !errors.Is(err, engine.ErrGymMasterDisabled) {
		t.Errorf("errors.Is(%v, ErrGymMasterDisabled) = false, want true", err)
	}
	if errors.Is(err, engine.ErrUnknownTimer) {
		t.Errorf("errors.Is(%v, ErrUnknownTimer) = true, want false", err)
	}
}

// TestAPIErrorMatchesServerErrors verifies that every engine error written
// by the server is matched by errors.Is on the client side.
func TestAPIErrorMatchesServerErrors(t *testing.T) {
	for _, sentinel := range engineErrors {
		err := error(&APIError{Status: http.StatusBadRequest, Message: sentinel.Error()})
		if !errors.Is(err, sentinel) {
			t.Errorf("errors.Is(%q) = false, want true", sentinel)
		}
	}
	other := error(&APIError{Status: http.StatusInternalServerError, Message: "boom"})
	if errors.Is(other, engine.ErrForbidden) {
		t.Error("unrelated message matched ErrForbidden")
	}
}
