package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/claude/gymrest/internal/config"
	"tailscale.com/client/tailscale/apitype"
	"tailscale.com/tailcfg"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWhoIs struct {
	resp *apitype.WhoIsResponse
	err  error
}

func (f fakeWhoIs) WhoIs(context.Context, string) (*apitype.WhoIsResponse, error) {
	return f.resp, f.err
}

func captureUser(got *UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = userInfoFromContext(r)
		w.WriteHeader(http.StatusOK)
	})
}

// TestDevIdentity verifies that the dev identity middleware assigns the
// local user when no override header is sent.
func TestDevIdentity(t *testing.T) {
	var got UserInfo
	handler := DevIdentity(true)(captureUser(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got.Login != "local" {
		t.Errorf("login = %q, want %q", got.Login, "local")
	}
}

// TestDevIdentityHeader verifies X-Dev-User switches the dev login so
// several athletes can be simulated locally, but only when impersonation
// is enabled.
func TestDevIdentityHeader(t *testing.T) {
	tests := []struct {
		allow bool
		want  string
	}{
		{true, "bob"},
		{false, "local"},
	}
	for _, tt := range tests {
		var got UserInfo
		handler := DevIdentity(tt.allow)(captureUser(&got))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Dev-User", " bob ")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if got.Login != tt.want {
			t.Errorf("allow=%v: login = %q, want %q", tt.allow, got.Login, tt.want)
		}
	}
}

// TestUserIDFromContextDefault verifies the fallback to the dev login when
// no identity middleware has run.
func TestUserIDFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := userIDFromContext(req); id != "local" {
		t.Errorf("userIDFromContext without context value = %q, want %q", id, "local")
	}
}

// TestUserInfoFromContextSet verifies UserInfo is extracted from context when set.
func TestUserInfoFromContextSet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = withUserInfo(req, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})

	info := userInfoFromContext(req)
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("displayName = %q, want %q", info.DisplayName, "Alice")
	}
	if id := userIDFromContext(req); id != "alice@example.com" {
		t.Errorf("userIDFromContext = %q, want %q", id, "alice@example.com")
	}
}

// TestTailscaleIdentity verifies the WhoIs profile becomes the request identity.
func TestTailscaleIdentity(t *testing.T) {
	lc := fakeWhoIs{resp: &apitype.WhoIsResponse{
		UserProfile: &tailcfg.UserProfile{LoginName: "alice@example.com", DisplayName: "Alice"},
	}}
	var got UserInfo
	handler := TailscaleIdentity(lc, discardLogger())(captureUser(&got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Login != "alice@example.com" || got.DisplayName != "Alice" {
		t.Errorf("user = %+v, want alice@example.com/Alice", got)
	}
}

// TestTailscaleIdentityUnknown verifies a failed WhoIs is rejected.
func TestTailscaleIdentityUnknown(t *testing.T) {
	lc := fakeWhoIs{err: errors.New("no such peer")}
	handler := TailscaleIdentity(lc, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestRequireOperator covers the API key and operator login paths. An
// operator login is only trusted when it comes from Tailscale; a dev
// identity needs the key even with impersonation enabled.
func TestRequireOperator(t *testing.T) {
	tests := []struct {
		name      string
		tailscale bool
		apiKey    string
		login     string
		want      int
	}{
		{"valid key", false, "secret", "", http.StatusOK},
		{"wrong key", false, "nope", "coach", http.StatusForbidden},
		{"operator login dev", false, "", "coach", http.StatusForbidden},
		{"operator login tailscale", true, "", "coach", http.StatusOK},
		{"plain athlete dev", false, "", "alice", http.StatusForbidden},
		{"plain athlete tailscale", true, "", "alice", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{
				auth: config.AuthConfig{APIKey: "secret", Operators: []string{"coach"}, DevImpersonation: true},
				log:  discardLogger(),
			}
			if tt.tailscale {
				s.tailscale = fakeWhoIs{resp: &apitype.WhoIsResponse{
					UserProfile: &tailcfg.UserProfile{LoginName: tt.login, DisplayName: tt.login},
				}}
			}
			handler := s.identify(RequireOperator(s.auth.APIKey, s.isOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.apiKey != "" {
				req.Header.Set("X-API-Key", tt.apiKey)
			}
			if !tt.tailscale && tt.login != "" {
				req.Header.Set("X-Dev-User", tt.login)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestRequestLogging verifies that the logging middleware calls the next handler and records status.
func TestRequestLogging(t *testing.T) {
	handler := RequestLogging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

// TestCORSHeaders verifies that CORS headers are set on responses.
func TestCORSHeaders(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q, want *", got)
	}
}

// TestCORSPreflight verifies that OPTIONS requests get 204 with CORS headers.
func TestCORSPreflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called for OPTIONS")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}
