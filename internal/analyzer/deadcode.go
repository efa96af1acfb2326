package analyzer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/husk-dev/husk/internal/cache"
	"github.com/husk-dev/husk/internal/fileproc"
	"github.com/husk-dev/husk/internal/implicit"
	"github.com/husk-dev/husk/internal/symbols"
	"github.com/husk-dev/husk/internal/xref"
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// fileOutcome is one file's contribution from the scatter phase.
type fileOutcome struct {
	module string
	result *symbols.FileResult
	failed bool
}

// AnalyzeDeadCode runs the full dead-code pipeline over root and classifies
// every definition against the configured confidence threshold.
func (a *Analyzer) AnalyzeDeadCode(ctx context.Context, root string) (*models.DeadCodeResult, error) {
	files, excluded, err := a.discover(root)
	if err != nil {
		return nil, err
	}

	tracker, err := a.loadTracker(root)
	if err != nil {
		return nil, err
	}

	fileCache := a.openCache()

	outcomes, _ := fileproc.MapFilesWithContext(ctx, files, a.cfg.Analysis.Workers,
		func(psr *parser.Parser, path string) (fileOutcome, error) {
			return a.resolveFile(psr, root, path, fileCache)
		}, a.OnProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Gather phase: merge per-file tables and cross-reference. Sorting by
	// module keeps the merged order independent of worker scheduling.
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].module < outcomes[j].module })

	engine := xref.NewEngine()
	engine.Strict = a.cfg.Analysis.Strict
	engine.Tracker = tracker
	failed := 0
	for _, o := range outcomes {
		if o.failed {
			failed++
		}
		engine.AddFile(o.module, o.result)
		if o.result != nil {
			tracker.AddPatterns(o.result.Patterns)
		}
	}
	engine.Resolve()

	result := engine.Classify(a.cfg.Thresholds.Confidence)
	result.Summary.TotalFiles = len(files)
	result.Summary.FailedFiles = failed
	result.Summary.ExcludedFolders = excluded
	result.ComputeConfidenceStats()
	return result, nil
}

// resolveFile parses and resolves one file, consulting the cache first. A
// file that fails to parse contributes an empty result instead of aborting
// the run.
func (a *Analyzer) resolveFile(psr *parser.Parser, root, path string, fileCache *cache.Cache) (fileOutcome, error) {
	module := Module(root, path)

	res, err := psr.ParseFile(path)
	if err != nil {
		a.warn(path, err)
		return fileOutcome{module: module, result: symbols.EmptyResult(), failed: true}, nil
	}

	if payload, ok := fileCache.Get(path, res.Source); ok {
		var cached symbols.FileResult
		if json.Unmarshal(payload, &cached) == nil {
			return fileOutcome{module: module, result: &cached}, nil
		}
	}

	fr := symbols.Resolve(res, module)

	if payload, err := json.Marshal(fr); err == nil {
		fileCache.Set(path, res.Source, payload)
	}
	return fileOutcome{module: module, result: fr}, nil
}

// loadTracker builds the implicit-reference tracker from trace and coverage
// files when they exist next to the analysis root.
func (a *Analyzer) loadTracker(root string) (*implicit.Tracker, error) {
	tracker := implicit.NewTracker()

	tracePath := a.cfg.Implicit.TraceFile
	if tracePath == "" {
		tracePath = implicit.DefaultTraceFile
	}
	if _, err := tracker.LoadTrace(filepath.Join(root, tracePath)); err != nil {
		return nil, err
	}

	coverPath := a.cfg.Implicit.CoverageFile
	if coverPath == "" {
		coverPath = implicit.DefaultCoverageFile
	}
	if _, err := tracker.LoadCoverage(filepath.Join(root, coverPath)); err != nil {
		return nil, err
	}

	return tracker, nil
}

// openCache opens the configured result cache; any failure degrades to a
// disabled cache.
func (a *Analyzer) openCache() *cache.Cache {
	cc := a.cfg.Cache
	if !cc.Enabled {
		disabled, _ := cache.New("", false)
		return disabled
	}
	c, err := cache.New(cc.Dir, true)
	if err != nil {
		disabled, _ := cache.New("", false)
		return disabled
	}
	return c
}
