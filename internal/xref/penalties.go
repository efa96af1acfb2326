package xref

import (
	"path/filepath"
	"strings"

	"github.com/husk-dev/husk/internal/symbols"
	"github.com/husk-dev/husk/pkg/models"
)

// Confidence penalties. A definition starts at 100 and loses points for each
// signal that "zero references" may not mean dead code.
const (
	penaltyPrivateName   = 50
	penaltyDunder        = 100
	penaltyUnderscoreVar = 70
	penaltyInInitFile    = 45
	penaltyDynamicModule = 50
	penaltyTestRelated   = 100
)

// autoCalled are methods the runtime invokes when the owning class is used,
// so a referenced class credits them even without an explicit call.
var autoCalled = map[string]struct{}{
	"__init__":          {},
	"__new__":           {},
	"__post_init__":     {},
	"__enter__":         {},
	"__exit__":          {},
	"__aenter__":        {},
	"__aexit__":         {},
	"__del__":           {},
	"__call__":          {},
	"__init_subclass__": {},
	"__set_name__":      {},
}

// futureFeatures are __future__ imports; they are directives, never dead.
var futureFeatures = map[string]struct{}{
	"annotations":      {},
	"absolute_import":  {},
	"division":         {},
	"print_function":   {},
	"unicode_literals": {},
	"generator_stop":   {},
}

func isTestPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test.py") {
		return true
	}
	norm := filepath.ToSlash(path)
	return strings.Contains(norm, "/tests/") || strings.Contains(norm, "/test/")
}

func isTestDecorated(d *symbols.Definition) bool {
	for _, dec := range d.Decorators {
		lower := strings.ToLower(dec)
		if strings.Contains(lower, "pytest") || strings.Contains(lower, "parametrize") ||
			strings.Contains(lower, "fixture") {
			return true
		}
	}
	return false
}

func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// applyPenalties computes a definition's confidence from scratch.
func (e *Engine) applyPenalties(d *symbols.Definition) {
	confidence := 100

	if strings.HasPrefix(d.SimpleName, "_") && !strings.HasPrefix(d.SimpleName, "__") {
		confidence -= penaltyPrivateName
	}
	if isDunder(d.SimpleName) {
		confidence -= penaltyDunder
	}
	if d.Kind == models.KindVariable && d.SimpleName == "_" {
		confidence -= penaltyUnderscoreVar
	}
	if d.InInit && (d.Kind == models.KindFunction || d.Kind == models.KindClass) {
		confidence -= penaltyInInitFile
	}
	if root, _, _ := strings.Cut(d.Name, "."); root != "" {
		if _, ok := e.dynamic[root]; ok {
			confidence -= penaltyDynamicModule
		}
	}
	if isTestPath(d.File) || isTestDecorated(d) {
		confidence -= penaltyTestRelated
	}

	// Hard zeroes: symbols the runtime or the language owns.
	if isDunder(d.SimpleName) {
		confidence = 0
	}
	if d.Kind == models.KindParameter {
		if d.SimpleName == "self" || d.SimpleName == "cls" {
			confidence = 0
		} else if i := strings.LastIndex(d.Name, "."); i > 0 {
			owner := d.Name[:i]
			if j := strings.LastIndex(owner, "."); j >= 0 {
				owner = owner[j+1:]
			}
			if isDunder(owner) {
				confidence = 0
			}
		}
	}
	if isTestPath(d.File) || isTestDecorated(d) {
		confidence = 0
	}
	if d.Kind == models.KindImport && strings.HasPrefix(d.Name, "__future__.") {
		if _, ok := futureFeatures[d.SimpleName]; ok {
			confidence = 0
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	d.Confidence = confidence
}
