package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/workflows"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with both research tools registered.
func New(runner Runner, defaults workflows.SupervisorConfig) *server.MCPServer {
	s := server.NewMCPServer(
		"deepresearch",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	research := NewDeepResearchTool(runner, defaults)
	s.AddTool(research.Definition(), research.Handle)

	scope := NewScopeTool(runner)
	s.AddTool(scope.Definition(), scope.Handle)

	return s
}

// Serve blocks serving s over stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Use scope_research to check how a question will be interpreted, then
deep_research to run the full research. Runs can take several minutes.`
