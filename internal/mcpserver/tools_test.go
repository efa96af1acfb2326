package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/husk-dev/husk/pkg/models"
)

func TestGetPath(t *testing.T) {
	if got := getPath(AnalyzeInput{}); got != "." {
		t.Errorf("empty path should default to %q, got %q", ".", got)
	}
	if got := getPath(AnalyzeInput{Path: "/src"}); got != "/src" {
		t.Errorf("got %q", got)
	}
}

func textContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T", res.Content[0])
	}
	return tc.Text
}

func TestToolResult(t *testing.T) {
	res, extra, err := toolResult(map[string]int{"total": 2})
	if err != nil {
		t.Fatalf("toolResult() error: %v", err)
	}
	if extra != nil {
		t.Errorf("extra = %v, want nil", extra)
	}
	if res.IsError {
		t.Error("result should not be an error")
	}

	var decoded map[string]int
	if err := json.Unmarshal([]byte(textContent(t, res)), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["total"] != 2 {
		t.Errorf("decoded = %v", decoded)
	}
}

func TestToolError(t *testing.T) {
	res, _, err := toolError("no such path")
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("IsError should be set")
	}
	if got := textContent(t, res); got != "Error: no such path" {
		t.Errorf("text = %q", got)
	}
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	source := `
import os

def handler():
    d = request.args["d"]
    os.system("ls " + d)

def orphan():
    return h
`
	if err := os.WriteFile(filepath.Join(root, "app.py"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestHandleAnalyzeDeadcode(t *testing.T) {
	root := writeProject(t)
	t.Chdir(t.TempDir())

	res, _, err := handleAnalyzeDeadcode(context.Background(), nil, DeadcodeInput{
		AnalyzeInput: AnalyzeInput{Path: root},
	})
	if err != nil {
		t.Fatalf("handleAnalyzeDeadcode() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	var result models.DeadCodeResult
	if err := json.Unmarshal([]byte(textContent(t, res)), &result); err != nil {
		t.Fatalf("payload is not a dead-code result: %v", err)
	}
	found := false
	for _, u := range result.UnusedFunctions {
		if u.SimpleName == "orphan" {
			found = true
		}
	}
	if !found {
		t.Errorf("orphan not reported: %+v", result.UnusedFunctions)
	}
}

func TestHandleScanSecuritySeverityFilter(t *testing.T) {
	root := writeProject(t)
	t.Chdir(t.TempDir())

	res, _, err := handleScanSecurity(context.Background(), nil, SecurityInput{
		AnalyzeInput: AnalyzeInput{Path: root},
		Severity:     "critical",
	})
	if err != nil {
		t.Fatalf("handleScanSecurity() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", textContent(t, res))
	}

	var result models.SecurityResult
	if err := json.Unmarshal([]byte(textContent(t, res)), &result); err != nil {
		t.Fatalf("payload is not a security result: %v", err)
	}
	if len(result.Findings) == 0 {
		t.Fatal("expected critical findings")
	}
	for _, f := range result.Findings {
		if f.Severity != models.SeverityCritical {
			t.Errorf("severity filter leaked %s finding: %+v", f.Severity, f)
		}
	}
}

func TestHandleAnalyzeDeadcodeBadPath(t *testing.T) {
	t.Chdir(t.TempDir())
	res, _, err := handleAnalyzeDeadcode(context.Background(), nil, DeadcodeInput{
		AnalyzeInput: AnalyzeInput{Path: filepath.Join(t.TempDir(), "absent")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing path should produce a tool error")
	}
	if !strings.HasPrefix(textContent(t, res), "Error: ") {
		t.Errorf("text = %q", textContent(t, res))
	}
}
