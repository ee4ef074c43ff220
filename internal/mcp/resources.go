package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/claude/gymrest/internal/engine"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) gymBoard(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status, err := h.src.Status(ctx)
	if err != nil {
		return nil, err
	}

	board := map[string]any{"status": status}
	sessions, err := h.src.ActiveSessions(ctx)
	switch {
	case err == nil:
		board["sessions"] = sessions
	case errors.Is(err, engine.ErrGymMasterDisabled):
		h.log.Debug("gym_board: gym master disabled, omitting sessions")
	default:
		h.log.Warn("gym_board: session query failed", "error", err)
	}

	data, err := json.Marshal(board)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
