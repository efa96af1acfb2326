// Package symbols implements the scope-aware symbol resolver that walks one
// parsed Python file and produces definitions, references, dynamic module
// roots, and declared exports for the cross-reference engine.
package symbols

import (
	"path/filepath"
	"strings"

	"github.com/husk-dev/husk/pkg/models"
)

// Definition is one declared symbol with its usage metadata. Created the
// first time the resolver visits the declaring node; reference count,
// confidence, and the exported flag are mutated later during global
// resolution. Definitions are never deleted.
type Definition struct {
	Name       string
	SimpleName string
	Kind       models.Kind
	File       string
	Line       int
	Confidence int
	References int
	Exported   bool
	InInit     bool

	// Structural metadata, backfilled on merge when missing.
	Decorators  []string
	BaseClasses []string
	Captured    []string
	IsClosure   bool
}

// NewDefinition creates a definition with full confidence and no references.
func NewDefinition(name string, kind models.Kind, file string, line int) *Definition {
	idx := strings.LastIndex(name, ".")
	simple := name
	if idx >= 0 {
		simple = name[idx+1:]
	}
	return &Definition{
		Name:       name,
		SimpleName: simple,
		Kind:       kind,
		File:       file,
		Line:       line,
		Confidence: 100,
		InInit:     filepath.Base(file) == "__init__.py",
	}
}

// Merge backfills structural metadata from a later sighting of the same
// fully-qualified name. Identity and usage state are kept from the first
// sighting.
func (d *Definition) Merge(other *Definition) {
	if len(d.Decorators) == 0 {
		d.Decorators = other.Decorators
	}
	if len(d.BaseClasses) == 0 {
		d.BaseClasses = other.BaseClasses
	}
	if len(d.Captured) == 0 {
		d.Captured = other.Captured
	}
	if other.IsClosure {
		d.IsClosure = true
	}
}

// DisplayName returns the name used in reports: methods keep their class
// qualifier, everything else shows the simple name.
func (d *Definition) DisplayName() string {
	if d.Kind == models.KindMethod && strings.Contains(d.Name, ".") {
		parts := strings.Split(d.Name, ".")
		if len(parts) >= 3 {
			return strings.Join(parts[len(parts)-2:], ".")
		}
		return d.Name
	}
	return d.SimpleName
}

// ToUnused converts the definition into a reportable entry.
func (d *Definition) ToUnused() models.UnusedSymbol {
	return models.UnusedSymbol{
		Name:       d.DisplayName(),
		FullName:   d.Name,
		SimpleName: d.SimpleName,
		Kind:       d.Kind,
		File:       d.File,
		Basename:   filepath.Base(d.File),
		Line:       d.Line,
		Confidence: d.Confidence,
		References: d.References,
	}
}

// Reference is one occurrence of a name being read. Resolution against the
// global definition table happens in bulk after every file is collected,
// because the target may live in a file not yet visited.
type Reference struct {
	Name string
	File string
}

// WildcardPattern is dynamic-dispatch evidence inferred from an interpolated
// string: the static prefix with "*" standing for the interpolated part.
type WildcardPattern struct {
	Pattern    string
	Confidence int
}
