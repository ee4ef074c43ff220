package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tailscale.com/client/tailscale/apitype"
)

type contextKey int

const userInfoKey contextKey = iota

// UserInfo is the identity attached to a request. Login doubles as the
// engine user ID.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

var devUser = UserInfo{Login: "local", DisplayName: "Local Dev User"}

// devUserHeader lets local development impersonate several athletes.
const devUserHeader = "X-Dev-User"

// whoIser is the subset of the Tailscale local client used for identity.
type whoIser interface {
	WhoIs(ctx context.Context, remoteAddr string) (*apitype.WhoIsResponse, error)
}

// userInfoFromContext returns the request identity, or the dev user when
// no identity middleware ran.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return devUser
}

// userIDFromContext returns the engine user ID of the caller.
func userIDFromContext(r *http.Request) string {
	return userInfoFromContext(r).Login
}

func withUserInfo(r *http.Request, info UserInfo) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userInfoKey, info))
}

// DevIdentity assigns the local dev identity to every request. With
// allowHeader set, the X-Dev-User header overrides the login.
func DevIdentity(allowHeader bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := devUser
			if login := strings.TrimSpace(r.Header.Get(devUserHeader)); allowHeader && login != "" {
				info = UserInfo{Login: login, DisplayName: login}
			}
			next.ServeHTTP(w, withUserInfo(r, info))
		})
	}
}

// TailscaleIdentity resolves the caller through Tailscale WhoIs.
func TailscaleIdentity(lc whoIser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			who, err := lc.WhoIs(r.Context(), r.RemoteAddr)
			if err != nil || who == nil || who.UserProfile == nil {
				log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
				http.Error(w, `{"error":"unknown tailnet identity"}`, http.StatusUnauthorized)
				return
			}
			info := UserInfo{
				Login:       who.UserProfile.LoginName,
				DisplayName: who.UserProfile.DisplayName,
			}
			next.ServeHTTP(w, withUserInfo(r, info))
		})
	}
}

// APIKeyAuth returns middleware that validates the X-API-Key header.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				http.Error(w, `{"error":"missing API key"}`, http.StatusUnauthorized)
				return
			}
			if key != apiKey {
				http.Error(w, `{"error":"invalid API key"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOperator admits gym master operators: either a valid X-API-Key
// or a caller for whom isOperator holds. Callers must only trust logins
// from a verified identity source in isOperator.
func RequireOperator(apiKey string, isOperator func(login string) bool) func(http.Handler) http.Handler {
	keyAuth := APIKeyAuth(apiKey)
	return func(next http.Handler) http.Handler {
		withKey := keyAuth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "" {
				withKey.ServeHTTP(w, r)
				return
			}
			if !isOperator(userIDFromContext(r)) {
				http.Error(w, `{"error":"gym master access required"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging returns middleware that logs each request.
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// CORS adds permissive CORS headers for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Dev-User")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the logging wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
