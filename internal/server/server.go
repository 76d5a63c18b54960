// Package server exposes the tutorial generator as an MCP server over stdio.
package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/pocketomega/repotutor/internal/app"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every tool registered.
func New(a *app.App) *server.MCPServer {
	s := server.NewMCPServer(
		"repotutor",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	generate := NewGenerateTool(a)
	s.AddTool(generate.Definition(), generate.Handle)

	list := NewListTool(a)
	s.AddTool(list.Definition(), list.Handle)

	content := NewContentTool(a)
	s.AddTool(content.Definition(), content.Handle)

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `repotutor turns a codebase into a beginner-friendly Markdown tutorial.
Call generate_tutorial with a GitHub URL or a local directory, then use
list_generated_tutorials and get_tutorial_content to read the result.`
