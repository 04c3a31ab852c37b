// Package mcpserver exposes a walker.Manager over the Model Context
// Protocol, so an external agent can drive a forge session the same
// way a CLI or in-process host would. Server construction, tool
// registration, and the stdio-serving entry point expose three tools:
// forge_walk, forge_status, forge_cancel.
package mcpserver

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/forgewalk/forge/pkg/forge"
)

// SessionManager is the capability this server needs from
// internal/walker.Manager, narrowed to an interface so this package
// doesn't import walker directly and the two can be tested in
// isolation.
type SessionManager interface {
	StartOrResume(ctx context.Context, sessionID string, tree forge.ForgeTree, startKey string) (forge.WalkStatus, error)
	Get(sessionID string) (forge.ITreeSession, bool)
	Cancel(sessionID string) bool
}

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Manager SessionManager
	Logger  *slog.Logger
}

// Server wraps an MCP server with forge-specific tool handlers.
type Server struct {
	manager   SessionManager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a Server with its tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &Server{manager: deps.Manager, logger: logger}

	mcpSrv := server.NewMCPServer(
		"forge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("forge drives schema-defined tree walks. Use forge_walk to start or resume a session, forge_status to inspect a session's current node and last action response, and forge_cancel to request cancellation of an in-progress walk."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled
// or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom
// transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: walkTool(), Handler: s.handleWalk},
		{Tool: statusTool(), Handler: s.handleStatus},
		{Tool: cancelTool(), Handler: s.handleCancel},
	}
}

func walkTool() mcp.Tool {
	return mcp.NewTool("forge_walk",
		mcp.WithDescription("Start or resume a tree walk for a session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Durable session identifier; reusing one rehydrates a crashed or suspended walk")),
		mcp.WithObject("tree", mcp.Required(), mcp.Description("The ForgeTree definition (rootKey plus nodes)")),
		mcp.WithString("start_key", mcp.Description("Node key to start from (defaults to the tree's rootKey)")),
	)
}

func statusTool() mcp.Tool {
	return mcp.NewTool("forge_status",
		mcp.WithDescription("Inspect a session's current node, status, and last action response"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier to query")),
	)
}

func cancelTool() mcp.Tool {
	return mcp.NewTool("forge_cancel",
		mcp.WithDescription("Request cancellation of a session's in-progress walk"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier to cancel")),
	)
}
