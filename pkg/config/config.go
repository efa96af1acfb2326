package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/husk-dev/husk/internal/implicit"
)

// Config holds all configuration options for husk.
type Config struct {
	// Analysis settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Confidence thresholds
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Runtime evidence inputs for implicit-reference tracking
	Implicit ImplicitConfig `koanf:"implicit" toml:"implicit"`
}

// AnalysisConfig controls how the analyzers run.
type AnalysisConfig struct {
	// Strict disables the simple-name fallback when crediting references,
	// trading recall for fewer false negatives.
	Strict bool `koanf:"strict" toml:"strict"`
	// Workers caps the parallel file workers; 0 means 2x NumCPU.
	Workers int `koanf:"workers" toml:"workers"`
}

// ThresholdConfig defines confidence thresholds on a 0-100 scale.
type ThresholdConfig struct {
	// Confidence is the minimum confidence for reporting a symbol unused.
	Confidence int `koanf:"confidence" toml:"confidence"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Folders   []string `koanf:"folders" toml:"folders"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls per-file result caching.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// ImplicitConfig points at runtime evidence files.
type ImplicitConfig struct {
	TraceFile    string `koanf:"trace_file" toml:"trace_file"`
	CoverageFile string `koanf:"coverage_file" toml:"coverage_file"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Strict:  false,
			Workers: 0,
		},
		Thresholds: ThresholdConfig{
			Confidence: 60,
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
			},
			Folders: []string{
				"__pycache__",
				".git",
				".pytest_cache",
				".mypy_cache",
				".tox",
				"venv",
				".venv",
				"env",
				".eggs",
				"*.egg-info",
				"node_modules",
				"build",
				"dist",
				".husk",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".husk/cache",
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
		Implicit: ImplicitConfig{
			TraceFile:    implicit.DefaultTraceFile,
			CoverageFile: implicit.DefaultCoverageFile,
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault tries to load config from standard locations or returns
// defaults.
func LoadOrDefault() *Config {
	configNames := []string{
		"husk.toml",
		"husk.yaml",
		"husk.yml",
		"husk.json",
		".husk.toml",
		".husk.yaml",
		".husk.yml",
		".husk.json",
	}
	searchDirs := []string{".", ".husk"}

	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := Load(path)
				if err == nil {
					return cfg
				}
			}
		}
	}

	return DefaultConfig()
}

// ShouldExcludeFolder reports whether a directory name matches the exclusion
// set. Entries ending in a bare suffix pattern ("*.egg-info") match by glob.
func (c *Config) ShouldExcludeFolder(name string) bool {
	for _, folder := range c.Exclude.Folders {
		if strings.ContainsAny(folder, "*?[") {
			if matched, _ := filepath.Match(folder, name); matched {
				return true
			}
			continue
		}
		if name == folder {
			return true
		}
	}
	return false
}

// ShouldExclude checks if a file path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	for _, part := range strings.Split(filepath.Dir(path), string(filepath.Separator)) {
		if part != "" && c.ShouldExcludeFolder(part) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
