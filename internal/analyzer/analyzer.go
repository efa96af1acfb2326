// Package analyzer orchestrates the analysis pipelines: file discovery, the
// parallel per-file scatter phase, and the single-threaded gather phase.
package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/husk-dev/husk/internal/scanner"
	"github.com/husk-dev/husk/pkg/config"
)

// Analyzer runs analyses over a directory tree.
type Analyzer struct {
	cfg *config.Config

	// OnProgress, when set, is invoked once per processed file.
	OnProgress func()
	// OnWarning receives non-fatal per-file failures.
	OnWarning func(path string, err error)
	// OnDiscover receives the number of files found before processing starts.
	OnDiscover func(total int)
}

// New creates an analyzer with the given configuration.
func New(cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Analyzer{cfg: cfg}
}

// Config returns the active configuration.
func (a *Analyzer) Config() *config.Config {
	return a.cfg
}

// discover lists the Python files to analyze. A root pointing at a single
// file returns just that file.
func (a *Analyzer) discover(root string) ([]string, []string, error) {
	s := scanner.New(a.cfg)

	ok, err := s.ScanFile(root)
	if err == nil && ok {
		a.discovered(1)
		return []string{root}, nil, nil
	}

	files, err := s.ScanDir(root)
	if err != nil {
		return nil, nil, err
	}
	a.discovered(len(files))
	return files, s.ExcludedFolders, nil
}

func (a *Analyzer) discovered(total int) {
	if a.OnDiscover != nil {
		a.OnDiscover(total)
	}
}

// Module derives the dotted module path of a file relative to the analysis
// root: pkg/sub/mod.py becomes "pkg.sub.mod", and package __init__ files
// collapse to the package path itself.
func Module(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(rel, string(filepath.Separator))
	if n := len(parts); n > 0 && parts[n-1] == "__init__" {
		parts = parts[:n-1]
	}
	return strings.Join(parts, ".")
}

func (a *Analyzer) warn(path string, err error) {
	if a.OnWarning != nil {
		a.OnWarning(path, err)
	}
}
