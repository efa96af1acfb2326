package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Thresholds.Confidence != 60 {
		t.Errorf("Confidence = %d, want 60", cfg.Thresholds.Confidence)
	}
	if cfg.Analysis.Strict {
		t.Error("strict should default off")
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should default on")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Format = %q, want text", cfg.Output.Format)
	}
	if !cfg.Exclude.Gitignore {
		t.Error("gitignore matching should default on")
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "husk.toml")
	content := `
[analysis]
strict = true
workers = 4

[thresholds]
confidence = 80

[exclude]
folders = ["generated"]

[output]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Analysis.Strict || cfg.Analysis.Workers != 4 {
		t.Errorf("analysis = %+v", cfg.Analysis)
	}
	if cfg.Thresholds.Confidence != 80 {
		t.Errorf("Confidence = %d, want 80", cfg.Thresholds.Confidence)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Output.Format)
	}
	if len(cfg.Exclude.Folders) != 1 || cfg.Exclude.Folders[0] != "generated" {
		t.Errorf("Folders = %v", cfg.Exclude.Folders)
	}
	// untouched sections keep their defaults
	if !cfg.Cache.Enabled {
		t.Error("cache default lost during load")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "husk.yaml")
	content := "thresholds:\n  confidence: 45\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Thresholds.Confidence != 45 {
		t.Errorf("Confidence = %d, want 45", cfg.Thresholds.Confidence)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing config file should error")
	}
}

func TestShouldExcludeFolder(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		want bool
	}{
		{"venv", true},
		{"__pycache__", true},
		{"mypkg.egg-info", true},
		{"src", false},
		{"venv2", false},
	}
	for _, tt := range tests {
		if got := cfg.ShouldExcludeFolder(tt.name); got != tt.want {
			t.Errorf("ShouldExcludeFolder(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude.Patterns = append(cfg.Exclude.Patterns, "*_generated.py")

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join("venv", "lib", "mod.py"), true},
		{filepath.Join("src", "app.py"), false},
		{filepath.Join("src", "schema_generated.py"), true},
		{"app.py", false},
	}
	for _, tt := range tests {
		if got := cfg.ShouldExclude(tt.path); got != tt.want {
			t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
