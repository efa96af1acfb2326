package models

import (
	"gonum.org/v1/gonum/stat"
)

// Kind classifies a declared symbol.
type Kind string

const (
	KindFunction  Kind = "function"
	KindMethod    Kind = "method"
	KindClass     Kind = "class"
	KindImport    Kind = "import"
	KindVariable  Kind = "variable"
	KindParameter Kind = "parameter"
	KindLambda    Kind = "lambda"
)

// UnusedSymbol is one reported dead-code finding.
type UnusedSymbol struct {
	Name       string `json:"name"`
	FullName   string `json:"full_name"`
	SimpleName string `json:"simple_name"`
	Kind       Kind   `json:"type"`
	File       string `json:"file"`
	Basename   string `json:"basename"`
	Line       int    `json:"line"`
	Confidence int    `json:"confidence"`
	References int    `json:"references"`
}

// DeadCodeResult is the full dead-code analysis output.
type DeadCodeResult struct {
	UnusedFunctions  []UnusedSymbol  `json:"unused_functions"`
	UnusedImports    []UnusedSymbol  `json:"unused_imports"`
	UnusedClasses    []UnusedSymbol  `json:"unused_classes"`
	UnusedVariables  []UnusedSymbol  `json:"unused_variables"`
	UnusedParameters []UnusedSymbol  `json:"unused_parameters"`
	Summary          AnalysisSummary `json:"analysis_summary"`
}

// NewDeadCodeResult returns a result with all lists allocated so JSON output
// always contains the five arrays even when empty.
func NewDeadCodeResult() *DeadCodeResult {
	return &DeadCodeResult{
		UnusedFunctions:  []UnusedSymbol{},
		UnusedImports:    []UnusedSymbol{},
		UnusedClasses:    []UnusedSymbol{},
		UnusedVariables:  []UnusedSymbol{},
		UnusedParameters: []UnusedSymbol{},
	}
}

// Add routes an unused symbol to the list matching its kind.
func (r *DeadCodeResult) Add(u UnusedSymbol) {
	switch u.Kind {
	case KindFunction, KindMethod, KindLambda:
		r.UnusedFunctions = append(r.UnusedFunctions, u)
	case KindImport:
		r.UnusedImports = append(r.UnusedImports, u)
	case KindClass:
		r.UnusedClasses = append(r.UnusedClasses, u)
	case KindVariable:
		r.UnusedVariables = append(r.UnusedVariables, u)
	case KindParameter:
		r.UnusedParameters = append(r.UnusedParameters, u)
	}
}

// Total returns the number of reported symbols across all lists.
func (r *DeadCodeResult) Total() int {
	return len(r.UnusedFunctions) + len(r.UnusedImports) + len(r.UnusedClasses) +
		len(r.UnusedVariables) + len(r.UnusedParameters)
}

// All returns every reported symbol in list order.
func (r *DeadCodeResult) All() []UnusedSymbol {
	out := make([]UnusedSymbol, 0, r.Total())
	out = append(out, r.UnusedFunctions...)
	out = append(out, r.UnusedImports...)
	out = append(out, r.UnusedClasses...)
	out = append(out, r.UnusedVariables...)
	out = append(out, r.UnusedParameters...)
	return out
}

// AnalysisSummary carries aggregate statistics for a run.
type AnalysisSummary struct {
	TotalFiles      int      `json:"total_files"`
	FailedFiles     int      `json:"failed_files,omitempty"`
	ExcludedFolders []string `json:"excluded_folders"`
	MeanConfidence  float64  `json:"mean_confidence,omitempty"`
	MinConfidence   int      `json:"min_confidence,omitempty"`
}

// ComputeConfidenceStats fills the summary's confidence statistics from the
// reported symbols.
func (r *DeadCodeResult) ComputeConfidenceStats() {
	all := r.All()
	if len(all) == 0 {
		return
	}
	xs := make([]float64, len(all))
	minC := all[0].Confidence
	for i, u := range all {
		xs[i] = float64(u.Confidence)
		if u.Confidence < minC {
			minC = u.Confidence
		}
	}
	r.Summary.MeanConfidence = stat.Mean(xs, nil)
	r.Summary.MinConfidence = minC
}
