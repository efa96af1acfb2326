// Package mcpserver exposes the analyzers as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the husk analysis tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates an MCP server with all husk tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "husk",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "analyze_deadcode",
		Description: "Find unused functions, methods, classes, imports, variables and " +
			"parameters in a Python codebase. Each symbol carries a confidence score; " +
			"only symbols at or above the confidence threshold are reported.",
	}, handleAnalyzeDeadcode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "scan_security",
		Description: "Scan Python source for security issues: SQL injection, command " +
			"injection, SSRF, open redirects, XSS, CORS misconfiguration, JWT " +
			"weaknesses, mass assignment, MCP server risks, and dangerous calls.",
	}, handleScanSecurity)
}
