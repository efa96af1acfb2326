package main

import (
	"github.com/urfave/cli/v2"

	"github.com/husk-dev/husk/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes husk's analyzers
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "husk": {
        "command": "husk",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_deadcode   Unused functions, classes, imports, variables, parameters
  - scan_security      SQL/command injection, SSRF, XSS, CORS, JWT, MCP risks`,
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	server := mcpserver.NewServer(version)
	return server.Run(c.Context)
}
