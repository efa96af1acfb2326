// Package xref merges per-file resolver output into one global definition
// table, resolves every reference against it, applies the confidence
// heuristics, and classifies definitions as used or unused.
package xref

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/husk-dev/husk/internal/symbols"
	"github.com/husk-dev/husk/pkg/models"
)

// ImplicitTracker overrides the default disposition of a zero-reference
// definition using dynamic-dispatch or execution evidence.
type ImplicitTracker interface {
	ShouldMarkAsUsed(d *symbols.Definition) (used bool, confidence int, reason string)
}

// Engine owns the merged definition table during the gather phase. It is not
// safe for concurrent use; all AddFile calls happen after the parallel
// scatter phase completes.
type Engine struct {
	defs    map[string]*symbols.Definition
	order   []string // insertion order for deterministic output
	refs    []symbols.Reference
	dynamic map[string]struct{}
	exports map[string][]string

	// Strict leaves unresolvable references uncounted instead of crediting
	// every definition sharing the simple name.
	Strict bool

	// Tracker, when set, is consulted before reporting a definition unused.
	Tracker ImplicitTracker
}

func NewEngine() *Engine {
	return &Engine{
		defs:    make(map[string]*symbols.Definition),
		dynamic: make(map[string]struct{}),
		exports: make(map[string][]string),
	}
}

// AddFile merges one file's resolver output. Same fully-qualified name seen
// twice merges instead of duplicating.
func (e *Engine) AddFile(module string, res *symbols.FileResult) {
	if res == nil {
		return
	}
	for _, d := range res.Defs {
		if existing, ok := e.defs[d.Name]; ok {
			existing.Merge(d)
			continue
		}
		e.defs[d.Name] = d
		e.order = append(e.order, d.Name)
	}
	e.refs = append(e.refs, res.Refs...)
	for root := range res.Dynamic {
		e.dynamic[root] = struct{}{}
	}
	if len(res.Exports) > 0 {
		e.exports[module] = append(e.exports[module], res.Exports...)
	}
}

// Definitions returns the merged table in insertion order.
func (e *Engine) Definitions() []*symbols.Definition {
	out := make([]*symbols.Definition, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.defs[name])
	}
	return out
}

// Lookup returns a definition by fully-qualified name.
func (e *Engine) Lookup(name string) (*symbols.Definition, bool) {
	d, ok := e.defs[name]
	return d, ok
}

// Resolve runs the gather phase: reference counting, lifecycle crediting,
// penalties, and export marking. Call once, after every AddFile.
func (e *Engine) Resolve() {
	e.markRefs()
	e.applyHeuristics()
	e.markExports()
	for _, name := range e.order {
		e.applyPenalties(e.defs[name])
	}
}

// simpleKey interns a simple name for the fallback index. Lookups behave
// exactly as if the map were keyed by the string; the hash keeps the keys
// fixed-width across large symbol tables.
func simpleKey(simple string) uint64 {
	return xxhash.Sum64String(simple)
}

// markRefs resolves every reference. Exact match wins; an import definition
// also credits the original it re-exports; otherwise every definition sharing
// the simple name is credited (unless Strict).
func (e *Engine) markRefs() {
	importToOriginal := make(map[string]string)
	for _, name := range e.order {
		d := e.defs[name]
		if d.Kind != models.KindImport {
			continue
		}
		importName := d.SimpleName
		for _, candName := range e.order {
			orig := e.defs[candName]
			if orig.Kind != models.KindImport && orig.SimpleName == importName && candName != name {
				importToOriginal[name] = candName
				break
			}
		}
	}

	bySimple := make(map[uint64][]*symbols.Definition)
	for _, name := range e.order {
		d := e.defs[name]
		bySimple[simpleKey(d.SimpleName)] = append(bySimple[simpleKey(d.SimpleName)], d)
	}

	for _, ref := range e.refs {
		if d, ok := e.defs[ref.Name]; ok {
			d.References++
			if orig, ok := importToOriginal[ref.Name]; ok {
				e.defs[orig].References++
			}
			continue
		}
		if e.Strict {
			continue
		}
		simple := ref.Name
		if i := strings.LastIndex(simple, "."); i >= 0 {
			simple = simple[i+1:]
		}
		for _, d := range bySimple[simpleKey(simple)] {
			if d.SimpleName == simple {
				d.References++
			}
		}
	}

	// Modules that reached dynamic constructs can call any of their public
	// functions by string; credit them.
	for root := range e.dynamic {
		prefix := root + "."
		for _, name := range e.order {
			d := e.defs[name]
			if !strings.HasPrefix(d.Name, prefix) {
				continue
			}
			if (d.Kind == models.KindFunction || d.Kind == models.KindMethod) &&
				!strings.HasPrefix(d.SimpleName, "_") {
				d.References++
			}
		}
	}
}

// applyHeuristics credits lifecycle methods of referenced classes and
// subclasses registered through __init_subclass__.
func (e *Engine) applyHeuristics() {
	classMethods := make(map[string][]*symbols.Definition)
	for _, name := range e.order {
		d := e.defs[name]
		if d.Kind != models.KindMethod && d.Kind != models.KindFunction {
			continue
		}
		i := strings.LastIndex(d.Name, ".")
		if i < 0 {
			continue
		}
		owner := d.Name[:i]
		if cls, ok := e.defs[owner]; ok && cls.Kind == models.KindClass {
			classMethods[owner] = append(classMethods[owner], d)
		}
	}

	for owner, methods := range classMethods {
		if e.defs[owner].References == 0 {
			continue
		}
		for _, m := range methods {
			if _, ok := autoCalled[m.SimpleName]; ok {
				m.References++
			}
		}
	}

	// A base class defining __init_subclass__ registers its subclasses at
	// class-creation time, so subclassing alone is a use.
	registrars := make(map[string]struct{})
	for owner, methods := range classMethods {
		for _, m := range methods {
			if m.SimpleName == "__init_subclass__" {
				registrars[owner] = struct{}{}
				registrars[e.defs[owner].SimpleName] = struct{}{}
			}
		}
	}
	if len(registrars) == 0 {
		return
	}
	for _, name := range e.order {
		d := e.defs[name]
		if d.Kind != models.KindClass {
			continue
		}
		for _, base := range d.BaseClasses {
			simple := base
			if i := strings.LastIndex(base, "."); i >= 0 {
				simple = base[i+1:]
			}
			if _, ok := registrars[base]; ok {
				d.References++
				break
			}
			if _, ok := registrars[simple]; ok {
				d.References++
				break
			}
		}
	}
}

// markExports flags init-file publics and __all__ names. A name declared in a
// module's __all__ exports every non-import definition under that module
// sharing the simple name, which covers wildcard re-export aggregation.
func (e *Engine) markExports() {
	for _, name := range e.order {
		d := e.defs[name]
		if d.InInit && !strings.HasPrefix(d.SimpleName, "_") {
			d.Exported = true
		}
	}
	for mod, names := range e.exports {
		prefix := mod + "."
		for _, exported := range names {
			for _, name := range e.order {
				d := e.defs[name]
				if strings.HasPrefix(d.Name, prefix) &&
					d.SimpleName == exported &&
					d.Kind != models.KindImport {
					d.Exported = true
				}
			}
		}
	}
}

// Classify reports every definition with zero references, not exported, and
// confidence at or above the threshold. The implicit tracker gets the last
// word on anything about to be reported.
func (e *Engine) Classify(threshold int) *models.DeadCodeResult {
	if threshold < 0 {
		threshold = 0
	}
	result := models.NewDeadCodeResult()
	for _, name := range e.order {
		d := e.defs[name]
		if d.References != 0 || d.Exported {
			continue
		}
		if d.Confidence <= 0 || d.Confidence < threshold {
			continue
		}
		if e.Tracker != nil {
			if used, _, _ := e.Tracker.ShouldMarkAsUsed(d); used {
				d.References++
				continue
			}
		}
		result.Add(d.ToUnused())
	}
	sortUnused(result)
	return result
}

func sortUnused(r *models.DeadCodeResult) {
	for _, list := range [][]models.UnusedSymbol{
		r.UnusedFunctions, r.UnusedImports, r.UnusedClasses, r.UnusedVariables, r.UnusedParameters,
	} {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].File != list[j].File {
				return list[i].File < list[j].File
			}
			return list[i].Line < list[j].Line
		})
	}
}
