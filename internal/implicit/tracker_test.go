package implicit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/husk-dev/husk/internal/symbols"
	"github.com/husk-dev/husk/pkg/models"
)

func def(name string, kind models.Kind, file string, line int) *symbols.Definition {
	return symbols.NewDefinition(name, kind, file, line)
}

func TestKnownRef(t *testing.T) {
	tr := NewTracker()
	tr.AddKnownRef("dispatch_event")

	used, conf, reason := tr.ShouldMarkAsUsed(def("app.dispatch_event", models.KindFunction, "app.py", 10))
	if !used {
		t.Fatal("known ref should mark the symbol used")
	}
	if conf != 95 || reason != "dynamic reference" {
		t.Errorf("got conf=%d reason=%q", conf, reason)
	}

	if used, _, _ := tr.ShouldMarkAsUsed(def("app.other", models.KindFunction, "app.py", 20)); used {
		t.Error("unrelated symbol should not be marked used")
	}
}

func TestWildcardPattern(t *testing.T) {
	tr := NewTracker()
	tr.AddPatterns([]symbols.WildcardPattern{{Pattern: "handle_*", Confidence: 80}})

	used, conf, _ := tr.ShouldMarkAsUsed(def("app.handle_login", models.KindFunction, "app.py", 5))
	if !used || conf != 80 {
		t.Errorf("handle_login should match handle_*, got used=%v conf=%d", used, conf)
	}
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.process", models.KindFunction, "app.py", 9)); used {
		t.Error("process should not match handle_*")
	}
}

func TestPatternDeduplication(t *testing.T) {
	tr := NewTracker()
	tr.AddPattern(symbols.WildcardPattern{Pattern: "on_*", Confidence: 70})
	tr.AddPattern(symbols.WildcardPattern{Pattern: "on_*", Confidence: 80})

	_, conf, _ := tr.ShouldMarkAsUsed(def("app.on_start", models.KindFunction, "app.py", 1))
	if conf != 70 {
		t.Errorf("first registration should win, got conf=%d", conf)
	}
}

func TestLoadTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	doc := `{"calls": [{"file": "src/app.py", "function": "worker", "line": 42}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	loaded, err := tr.LoadTrace(path)
	if err != nil {
		t.Fatalf("LoadTrace() error: %v", err)
	}
	if !loaded {
		t.Fatal("trace with calls should report loaded")
	}

	// basename match, declaration within the proximity window
	if used, _, reason := tr.ShouldMarkAsUsed(def("app.worker", models.KindFunction, "app.py", 40)); !used {
		t.Error("traced call near the declaration should mark it used")
	} else if reason != "executed (call trace)" {
		t.Errorf("reason = %q", reason)
	}
	// same function name, declaration too far away
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.worker", models.KindFunction, "app.py", 100)); used {
		t.Error("call outside the proximity window should not count")
	}
}

func TestLoadTraceMissingFile(t *testing.T) {
	tr := NewTracker()
	loaded, err := tr.LoadTrace(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Errorf("missing trace file should not error: %v", err)
	}
	if loaded {
		t.Error("missing trace file should report nothing loaded")
	}
}

func TestLoadTraceRejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.json")
	// "calls" entries missing required fields
	doc := `{"calls": [{"file": "app.py"}]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	if _, err := tr.LoadTrace(path); err == nil {
		t.Error("schema violation should be an error")
	}
}

func TestLoadCoverageExecutedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	doc := `{"files": {"src/app.py": {"executed_lines": [10, 11, 30]}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	loaded, err := tr.LoadCoverage(path)
	if err != nil {
		t.Fatalf("LoadCoverage() error: %v", err)
	}
	if !loaded {
		t.Fatal("coverage with hits should report loaded")
	}
	if got := tr.CoveredLines("app.py"); got != 3 {
		t.Errorf("CoveredLines = %d, want 3", got)
	}

	// variables need an exact line hit
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.flag", models.KindVariable, "app.py", 30)); !used {
		t.Error("covered variable line should count")
	}
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.other", models.KindVariable, "app.py", 31)); used {
		t.Error("uncovered variable line should not count")
	}
	// functions tolerate a window below the declaration
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.fn", models.KindFunction, "app.py", 8)); !used {
		t.Error("coverage shortly after the declaration should count for functions")
	}
}

func TestLoadCoverageNumbits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coverage.json")
	// base64("\x05") sets bits 0 and 2: lines 0 and 2 executed
	doc := `{"files": {"app.py": {"numbits": "BQ=="}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := NewTracker()
	loaded, err := tr.LoadCoverage(path)
	if err != nil {
		t.Fatalf("LoadCoverage() error: %v", err)
	}
	if !loaded {
		t.Fatal("numbits coverage should report loaded")
	}
	if got := tr.CoveredLines("app.py"); got != 2 {
		t.Errorf("CoveredLines = %d, want 2", got)
	}
	if used, _, _ := tr.ShouldMarkAsUsed(def("app.x", models.KindVariable, "app.py", 2)); !used {
		t.Error("line 2 should be covered via numbits")
	}
}

func TestLoadCoverageMissingFile(t *testing.T) {
	tr := NewTracker()
	loaded, err := tr.LoadCoverage(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Errorf("missing coverage file should not error: %v", err)
	}
	if loaded {
		t.Error("missing coverage file should report nothing loaded")
	}
}
