// Package mcp exposes gym master operations as MCP tools so an assistant
// can watch and steer every athlete's rest timers.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(src GymSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GymRest", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GymRest gym master server. List active workout sessions and rest timers across the gym, and stop, skip or extend any athlete's rest. Gym master mode must be enabled before acting on other users."),
	)

	h := &handlers{src: src, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetGymStatus, Handler: h.getGymStatus},
		server.ServerTool{Tool: toolSetGymMasterMode, Handler: h.setGymMasterMode},
		server.ServerTool{Tool: toolListActiveSessions, Handler: h.listActiveSessions},
		server.ServerTool{Tool: toolListActiveTimers, Handler: h.listActiveTimers},
		server.ServerTool{Tool: toolStopUserTimer, Handler: h.stopUserTimer},
		server.ServerTool{Tool: toolSkipUserTimer, Handler: h.skipUserTimer},
		server.ServerTool{Tool: toolExtendUserTimer, Handler: h.extendUserTimer},
		server.ServerTool{Tool: toolEndUserSession, Handler: h.endUserSession},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resGymBoard, Handler: h.gymBoard},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	src GymSource
	log *slog.Logger
}

var resGymBoard = mcp.NewResource(
	"gymrest://gym_board",
	"Gym Board",
	mcp.WithResourceDescription("Gym master status with every active session and its rest countdown"),
	mcp.WithMIMEType("application/json"),
)
