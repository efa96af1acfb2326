// Package implicit tracks evidence that a symbol is used even though static
// resolution found no reference: dynamic-dispatch name patterns, execution
// call traces, and test-coverage line hits.
package implicit

import (
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/husk-dev/husk/internal/symbols"
	"github.com/husk-dev/husk/pkg/models"
)

// Functions and methods tolerate a trailing window of covered lines below the
// declaration, because decorators and signatures offset the first executed
// line. Other kinds need an exact hit.
const coverageWindow = 50

// Trace proximity: a recorded call within this many lines of the declaration
// counts as evidence.
const traceWindow = 5

// Tracker is populated once before classification and read-only afterwards.
type Tracker struct {
	mu sync.Mutex

	knownRefs map[string]struct{}
	patterns  []compiledPattern

	// tracedByFile: basename -> function name -> declared lines seen in the
	// execution trace.
	tracedByFile map[string]map[string][]int

	// coverage: basename -> executed-line bitmap.
	coverage map[string]*roaring.Bitmap
}

type compiledPattern struct {
	source     string
	re         *regexp.Regexp
	confidence int
}

func NewTracker() *Tracker {
	return &Tracker{
		knownRefs:    make(map[string]struct{}),
		tracedByFile: make(map[string]map[string][]int),
		coverage:     make(map[string]*roaring.Bitmap),
	}
}

// AddKnownRef records a simple name observed through a dynamic construct.
func (t *Tracker) AddKnownRef(simpleName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.knownRefs[simpleName] = struct{}{}
}

// AddPattern compiles a wildcard pattern ("prefix_*") against simple names.
func (t *Tracker) AddPattern(p symbols.WildcardPattern) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, existing := range t.patterns {
		if existing.source == p.Pattern {
			return
		}
	}
	quoted := regexp.QuoteMeta(p.Pattern)
	quoted = strings.ReplaceAll(quoted, `\*`, `.*`)
	re, err := regexp.Compile("^" + quoted + "$")
	if err != nil {
		return
	}
	t.patterns = append(t.patterns, compiledPattern{source: p.Pattern, re: re, confidence: p.Confidence})
}

// AddPatterns registers every wildcard pattern from a file's resolver output.
func (t *Tracker) AddPatterns(ps []symbols.WildcardPattern) {
	for _, p := range ps {
		t.AddPattern(p)
	}
}

// ShouldMarkAsUsed checks the evidence sources in order: exact known name,
// wildcard pattern, call-trace proximity, coverage hit. A positive answer
// overrides the confidence engine's disposition for that definition.
func (t *Tracker) ShouldMarkAsUsed(d *symbols.Definition) (bool, int, string) {
	simple := d.SimpleName

	if _, ok := t.knownRefs[simple]; ok {
		return true, 95, "dynamic reference"
	}

	for _, p := range t.patterns {
		if p.re.MatchString(simple) {
			return true, p.confidence, "pattern '" + p.source + "'"
		}
	}

	base := filepath.Base(d.File)
	if funcs, ok := t.tracedByFile[base]; ok {
		if lines, ok := funcs[simple]; ok {
			for _, l := range lines {
				if abs(l-d.Line) <= traceWindow {
					return true, 100, "executed (call trace)"
				}
			}
		}
	}

	if bm, ok := t.coverage[base]; ok {
		if d.Kind == models.KindFunction || d.Kind == models.KindMethod {
			for off := 0; off < coverageWindow; off++ {
				if bm.Contains(uint32(d.Line + off)) {
					return true, 100, "executed (coverage)"
				}
			}
		} else if bm.Contains(uint32(d.Line)) {
			return true, 100, "executed (coverage)"
		}
	}

	return false, 0, ""
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
