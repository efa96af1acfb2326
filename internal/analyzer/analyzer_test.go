package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/husk-dev/husk/pkg/config"
	"github.com/husk-dev/husk/pkg/models"
)

func TestModule(t *testing.T) {
	tests := []struct {
		root string
		path string
		want string
	}{
		{"/proj", "/proj/app.py", "app"},
		{"/proj", "/proj/pkg/sub/mod.py", "pkg.sub.mod"},
		{"/proj", "/proj/pkg/__init__.py", "pkg"},
		{"/proj", "/proj/__init__.py", ""},
	}
	for _, tt := range tests {
		if got := Module(tt.root, tt.path); got != tt.want {
			t.Errorf("Module(%q, %q) = %q, want %q", tt.root, tt.path, got, tt.want)
		}
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Cache.Enabled = false
	return cfg
}

func unusedNames(result *models.DeadCodeResult) map[string]bool {
	out := make(map[string]bool)
	for _, u := range result.All() {
		out[u.FullName] = true
	}
	return out
}

func TestAnalyzeDeadCode(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": `
import lib

def main():
    lib.helper()
`,
		"lib.py": `
def helper():
    return 1

def orphan():
    return 2
`,
	})

	a := New(testConfig())
	var discovered, ticks int
	a.OnDiscover = func(total int) { discovered = total }
	a.OnProgress = func() { ticks++ }

	result, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatalf("AnalyzeDeadCode() error: %v", err)
	}

	if discovered != 2 || ticks != 2 {
		t.Errorf("discovered = %d, ticks = %d, want 2/2", discovered, ticks)
	}
	if result.Summary.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", result.Summary.TotalFiles)
	}

	names := unusedNames(result)
	if !names["lib.orphan"] {
		t.Errorf("lib.orphan should be reported, got %v", names)
	}
	if names["lib.helper"] {
		t.Error("lib.helper is used and should not be reported")
	}
	if result.Summary.MinConfidence == 0 && result.Total() > 0 {
		t.Error("confidence stats not computed")
	}
}

func TestAnalyzeDeadCodeThreshold(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": `
def _secret():
    return 1
`,
	})

	cfg := testConfig()
	a := New(cfg)
	result, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if unusedNames(result)["app._secret"] {
		t.Error("confidence 50 should be below the default threshold")
	}

	cfg.Thresholds.Confidence = 20
	result, err = a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !unusedNames(result)["app._secret"] {
		t.Error("lowered threshold should report the private function")
	}
}

func TestAnalyzeDeadCodeExcludesFolders(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":         "def orphan():\n    return 1\n",
		"venv/vendor.py": "def vendored():\n    return 2\n",
	})

	a := New(testConfig())
	result, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.Summary.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", result.Summary.TotalFiles)
	}
	if len(result.Summary.ExcludedFolders) != 1 {
		t.Errorf("ExcludedFolders = %v", result.Summary.ExcludedFolders)
	}
	if unusedNames(result)["venv.vendor.vendored"] {
		t.Error("excluded folder contents should not be analyzed")
	}
}

func TestAnalyzeDeadCodeSingleFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"solo.py": "def orphan():\n    return 1\n",
	})

	a := New(testConfig())
	result, err := a.AnalyzeDeadCode(context.Background(), filepath.Join(root, "solo.py"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", result.Summary.TotalFiles)
	}
	if !unusedNames(result)["solo.orphan"] {
		t.Errorf("single-file analysis should report the orphan, got %v", unusedNames(result))
	}
}

func TestAnalyzeDeadCodeCancelled(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "x = 1\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(testConfig())
	if _, err := a.AnalyzeDeadCode(ctx, root); err == nil {
		t.Error("cancelled context should surface an error")
	}
}

func TestAnalyzeDeadCodeParseFailureWarns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"ok.py": "def orphan():\n    return 1\n",
	})
	// unreadable file triggers the warning path
	bad := filepath.Join(root, "bad.py")
	if err := os.WriteFile(bad, []byte("x = 1\n"), 0o000); err != nil {
		t.Fatal(err)
	}
	if os.Geteuid() == 0 {
		t.Skip("permission bits are ignored for root")
	}

	a := New(testConfig())
	var warned []string
	a.OnWarning = func(path string, err error) { warned = append(warned, path) }

	result, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.FailedFiles != 1 || len(warned) != 1 {
		t.Errorf("FailedFiles = %d, warned = %v", result.Summary.FailedFiles, warned)
	}
}

func TestAnalyzeSecurity(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.py": `
import os

def handler():
    d = request.args["d"]
    os.system("ls " + d)
`,
		"a.py": `
h = hashlib.md5(data)
`,
	})

	a := New(testConfig())
	result, err := a.AnalyzeSecurity(context.Background(), root)
	if err != nil {
		t.Fatalf("AnalyzeSecurity() error: %v", err)
	}

	if result.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", result.FilesScanned)
	}
	if len(result.Findings) < 2 {
		t.Fatalf("findings = %+v", result.Findings)
	}
	// sorted by file then line
	if filepath.Base(result.Findings[0].File) != "a.py" {
		t.Errorf("findings not sorted by file: %+v", result.Findings[0])
	}

	ids := make(map[string]bool)
	for _, f := range result.Findings {
		ids[f.RuleID] = true
	}
	if !ids["HUSK-D207"] || !ids["HUSK-D203"] || !ids["HUSK-D212"] {
		t.Errorf("expected weak-hash and command findings, got %v", ids)
	}
}

func TestAnalyzeDeadCodeUsesCache(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py": "def orphan():\n    return 1\n",
	})

	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = filepath.Join(root, ".cachedir")

	a := New(cfg)
	first, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.AnalyzeDeadCode(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if first.Total() != second.Total() {
		t.Errorf("cached run diverged: %d vs %d", first.Total(), second.Total())
	}
	if !unusedNames(second)["app.orphan"] {
		t.Error("cached result should still report the orphan")
	}
}
