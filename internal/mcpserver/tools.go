package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/husk-dev/husk/internal/analyzer"
	"github.com/husk-dev/husk/pkg/config"
	"github.com/husk-dev/husk/pkg/models"
)

// AnalyzeInput is the base input for both tools.
type AnalyzeInput struct {
	Path string `json:"path,omitempty" jsonschema:"Directory or file to analyze. Defaults to current directory."`
}

// DeadcodeInput adds dead-code options.
type DeadcodeInput struct {
	AnalyzeInput
	Confidence int  `json:"confidence,omitempty" jsonschema:"Minimum confidence threshold (0-100). Default 60."`
	Strict     bool `json:"strict,omitempty" jsonschema:"Disable simple-name fallback matching for fewer false negatives."`
}

// SecurityInput adds security-scan options.
type SecurityInput struct {
	AnalyzeInput
	Severity string `json:"severity,omitempty" jsonschema:"Minimum severity to report: LOW, MEDIUM, HIGH, or CRITICAL."`
}

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func toolResult(data any) (*mcp.CallToolResult, any, error) {
	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func handleAnalyzeDeadcode(ctx context.Context, req *mcp.CallToolRequest, input DeadcodeInput) (*mcp.CallToolResult, any, error) {
	cfg := config.LoadOrDefault()
	if input.Confidence > 0 {
		cfg.Thresholds.Confidence = input.Confidence
	}
	cfg.Analysis.Strict = input.Strict

	a := analyzer.New(cfg)
	result, err := a.AnalyzeDeadCode(ctx, getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(result)
}

func handleScanSecurity(ctx context.Context, req *mcp.CallToolRequest, input SecurityInput) (*mcp.CallToolResult, any, error) {
	cfg := config.LoadOrDefault()

	a := analyzer.New(cfg)
	result, err := a.AnalyzeSecurity(ctx, getPath(input.AnalyzeInput))
	if err != nil {
		return toolError(err.Error())
	}

	if min := models.ParseSeverity(input.Severity).Rank(); min > 0 {
		kept := result.Findings[:0]
		for _, f := range result.Findings {
			if f.Severity.Rank() >= min {
				kept = append(kept, f)
			}
		}
		result.Findings = kept
	}
	return toolResult(result)
}
