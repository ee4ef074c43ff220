package server

import (
	"context"
	"time"

	"github.com/claude/gymrest/internal/models"
)

// persistSummary records a finished session. The session is already gone
// from the registry, so a storage failure is logged and the summary is
// still returned to the caller without an ID.
func (s *Server) persistSummary(summary models.SessionSummary) models.SessionSummary {
	if s.store == nil {
		return summary
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	id, err := s.store.InsertSessionSummary(ctx, summary)
	if err != nil {
		s.log.Error("failed to persist session summary", "user", summary.UserID, "error", err)
		return summary
	}
	summary.ID = id
	return summary
}

// contextWithTimeout returns a background context with a 5-second timeout,
// detached from the request so a disconnecting client cannot cancel the write.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
