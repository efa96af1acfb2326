// Package rules contains the security rule packs. Each pack supplies its
// source/sink/sanitizer vocabulary and qualified-call matching; taint scope
// tracking and propagation live in internal/taint.
package rules

import (
	"github.com/husk-dev/husk/pkg/models"
	"github.com/husk-dev/husk/pkg/parser"
)

// Pack scans one parsed file and returns its findings.
type Pack func(res *parser.ParseResult) []models.Finding

// All returns every rule pack in a stable order.
func All() []Pack {
	return []Pack{
		ScanSQL,
		ScanCommand,
		ScanSSRF,
		ScanRedirect,
		ScanXSS,
		ScanCORS,
		ScanJWT,
		ScanMassAssignment,
		ScanMCP,
		ScanDangerousCalls,
	}
}

// ScanFile runs every pack over one parsed file.
func ScanFile(res *parser.ParseResult) []models.Finding {
	var findings []models.Finding
	for _, pack := range All() {
		findings = append(findings, pack(res)...)
	}
	return findings
}
