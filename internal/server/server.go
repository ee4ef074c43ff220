package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/gymrest/internal/config"
	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
	"github.com/claude/gymrest/internal/notify"
	"github.com/claude/gymrest/internal/storage"
	"github.com/go-chi/chi/v5"
)

// SummaryStore persists finished session summaries. Both *storage.DB and
// *storage.SQLite satisfy it.
type SummaryStore interface {
	InsertSessionSummary(ctx context.Context, s models.SessionSummary) (int64, error)
	QuerySessionSummaries(ctx context.Context, userID string, limit int) ([]models.SessionSummary, error)
	GetRestSummary(ctx context.Context, userID string, start, end time.Time, bucket string) ([]storage.RestPeriodSummary, error)
}

var (
	_ SummaryStore = (*storage.DB)(nil)
	_ SummaryStore = (*storage.SQLite)(nil)
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	reg       *engine.Registry
	gym       *engine.GymMaster
	store     SummaryStore
	events    *notify.Broadcaster
	auth      config.AuthConfig
	log       *slog.Logger
	tailscale whoIser
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(reg *engine.Registry, gym *engine.GymMaster, store SummaryStore, events *notify.Broadcaster, auth config.AuthConfig, log *slog.Logger) *Server {
	s := &Server{
		reg:    reg,
		gym:    gym,
		store:  store,
		events: events,
		auth:   auth,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the dev user to Tailscale WhoIs.
func (s *Server) SetTailscale(lc whoIser) {
	s.tailscale = lc
}

// SetMCP mounts an MCP handler at /mcp behind operator auth.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identify, RequireOperator(s.auth.APIKey, s.isOperator)).Handle("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/me", s.handleMe)
		r.Get("/sessions", s.handleActiveSessions)
		r.Get("/summaries", s.handleSummaries)
		r.Get("/summaries/periods", s.handleRestSummary)
		r.Get("/events", s.handleEvents)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleGetSession)
			r.Patch("/", s.handleUpdateSession)
			r.Delete("/", s.handleEndSession)
			r.Post("/pause", s.handlePauseSession)
			r.Post("/resume", s.handleResumeSession)
		})

		r.Route("/timer", func(r chi.Router) {
			r.Post("/", s.handleStartTimer)
			r.Get("/", s.handleGetTimer)
			r.Post("/{id}/pause", s.handlePauseTimer)
			r.Post("/{id}/resume", s.handleResumeTimer)
			r.Post("/{id}/stop", s.handleStopTimer)
			r.Post("/{id}/skip", s.handleSkipTimer)
			r.Post("/{id}/extend", s.handleExtendTimer)
		})

		// Gym master endpoints (API key, or operator login via Tailscale)
		r.Route("/gym", func(r chi.Router) {
			r.Use(RequireOperator(s.auth.APIKey, s.isOperator))
			r.Get("/", s.handleGymStatus)
			r.Put("/", s.handleGymUpdate)
			r.Get("/sessions", s.handleGymSessions)
			r.Get("/timers", s.handleGymTimers)
			r.Get("/events", s.handleGymEvents)
			r.Post("/users/{userID}/timer/stop", s.handleGymStopTimer)
			r.Post("/users/{userID}/timer/skip", s.handleGymSkipTimer)
			r.Post("/users/{userID}/timer/extend", s.handleGymExtendTimer)
			r.Delete("/users/{userID}/session", s.handleGymEndSession)
		})
	})
}

// identify attaches the caller identity: Tailscale WhoIs when a local
// client is configured, otherwise the dev identity.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(s.auth.DevImpersonation)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tailscale != nil {
			TailscaleIdentity(s.tailscale, s.log)(next).ServeHTTP(w, r)
			return
		}
		dev.ServeHTTP(w, r)
	})
}

// isOperator trusts the operator list only for Tailscale-verified logins;
// dev identities must present the API key.
func (s *Server) isOperator(login string) bool {
	return s.tailscale != nil && s.auth.IsOperator(login)
}
