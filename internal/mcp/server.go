// Package mcp exposes the agent over the Model Context Protocol so that
// MCP clients can inspect and nudge window placement. The server speaks
// stdio and relays every tool call to the agent's control socket.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wsanchor/wsanchor/internal/control"
	"github.com/wsanchor/wsanchor/internal/identity"
	"github.com/wsanchor/wsanchor/internal/logging"
)

const (
	ServerName    = "wsanchor"
	ServerVersion = "0.1.0"
)

// Control is the slice of the control socket client the tools use.
type Control interface {
	Status() (*control.StatusData, error)
	Windows() ([]identity.WindowStatus, error)
	Sync() error
}

var _ Control = (*control.Client)(nil)

// Server is the MCP server for window placement inspection.
type Server struct {
	mcpServer *mcpsdk.Server
	control   Control
	log       *logging.Logger
}

// NewServer builds the server against a control socket client.
func NewServer(ctl Control, log *logging.Logger) *Server {
	s := &Server{control: ctl, log: log}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run serves MCP on stdio, blocking until done. The transport owns stdout,
// so the server's logger must write elsewhere.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "anchor_status",
		Description: "Report the placement agent's health: uptime, whether the window manager host is running, tracked window classes, live and stored window counts, and syncs awaiting an answer.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "anchor_windows",
		Description: "List every tracked window identity with its last known workspace, current title, and whether the window is on screen right now. Stored identities whose window has closed are included unless live_only is set.",
	}, s.handleWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "anchor_sync",
		Description: "Ask the agent to run a full placement sync now instead of waiting for the next window event. Returns once the sync is queued; placement results land asynchronously.",
	}, s.handleSync)
}
